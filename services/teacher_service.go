package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anjiri1684/teacherin/models"
	"github.com/anjiri1684/teacherin/utils"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TeacherService struct {
	db  *gorm.DB
	log *zerolog.Logger
}

func NewTeacherService(db *gorm.DB, log *zerolog.Logger) *TeacherService {
	return &TeacherService{db: db, log: log}
}

type TeacherQuery struct {
	Search    string
	City      string
	MinPrice  *float64
	MaxPrice  *float64
	MinRating *float64
	Skills    []string
	Page      utils.PageRequest
}

func (s *TeacherService) ListTeachers(ctx context.Context, q TeacherQuery) (utils.Page[models.Teacher], error) {
	var page utils.Page[models.Teacher]

	skills := make([]string, 0, len(q.Skills))
	for _, sk := range q.Skills {
		if sk = strings.ToLower(strings.TrimSpace(sk)); sk != "" {
			skills = append(skills, sk)
		}
	}
	search := strings.ToLower(strings.TrimSpace(q.Search))
	city := strings.ToLower(strings.TrimSpace(q.City))

	filter := Filter{where("users.is_active = ?", true)}.
		When(search != "", where("LOWER(users.full_name) LIKE ?", "%"+search+"%")).
		When(city != "", where("LOWER(users.city) = ?", city)).
		When(q.MinPrice != nil, where("teachers.price_per_hour >= ?", deref(q.MinPrice))).
		When(q.MaxPrice != nil, where("teachers.price_per_hour <= ?", deref(q.MaxPrice))).
		When(q.MinRating != nil, where("teachers.avg_rating >= ?", deref(q.MinRating))).
		When(len(skills) > 0, where(`teachers.id IN (
			SELECT teacher_skills.teacher_id FROM teacher_skills
			JOIN skills ON skills.id = teacher_skills.skill_id
			WHERE LOWER(skills.name) IN ?)`, skills))

	base := func() *gorm.DB {
		return filter.Scope(s.db.WithContext(ctx).Model(&models.Teacher{}).
			Joins("JOIN users ON users.id = teachers.user_id"))
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return page, fmt.Errorf("count teachers: %w", err)
	}

	var teachers []models.Teacher
	err := base().
		Select("teachers.*").
		Preload("User").
		Preload("Skills").
		Order("teachers.avg_rating DESC, teachers.created_at").
		Offset(q.Page.Offset()).
		Limit(q.Page.Limit).
		Find(&teachers).Error
	if err != nil {
		return page, fmt.Errorf("list teachers: %w", err)
	}
	return utils.NewPage(teachers, q.Page, total), nil
}

func (s *TeacherService) GetTeacher(ctx context.Context, id uuid.UUID) (*models.Teacher, error) {
	var teacher models.Teacher
	if err := s.db.WithContext(ctx).Preload("User").Preload("Skills").First(&teacher, "id = ?", id).Error; err != nil {
		return nil, dbErr(err, "load teacher", ErrTeacherNotFound, nil)
	}
	return &teacher, nil
}

// TeacherIDForUser resolves the teacher profile of a user, or uuid.Nil.
func (s *TeacherService) TeacherIDForUser(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	id, err := firstID(s.db.WithContext(ctx).Model(&models.Teacher{}).Where("user_id = ?", userID), "id")
	if err != nil {
		return uuid.Nil, fmt.Errorf("resolve teacher profile: %w", err)
	}
	return id, nil
}

type OnboardInput struct {
	Role            string
	Bio             *string
	City            *string
	AvatarURL       *string
	ExperienceYears int
	PricePerHour    float64
	SkillIDs        []uuid.UUID
}

// Onboard completes a fresh account as a student or a teacher. Teachers
// get their profile row here.
func (s *TeacherService) Onboard(ctx context.Context, p Principal, in OnboardInput) (*models.User, error) {
	if p.UserID == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	if p.IsAdmin() {
		return nil, Forbidden("admins do not onboard")
	}
	if in.Role != models.RoleStudent && in.Role != models.RoleTeacher {
		return nil, Validation("role must be %s or %s", models.RoleStudent, models.RoleTeacher)
	}
	if in.Role == models.RoleTeacher && in.PricePerHour <= 0 {
		return nil, Validation("price per hour must be greater than zero")
	}
	if in.ExperienceYears < 0 {
		return nil, Validation("experience years must not be negative")
	}

	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, "id = ?", p.UserID).Error; err != nil {
			return dbErr(err, "load user", ErrUserNotFound, nil)
		}
		if user.OnboardedAt != nil {
			return ErrAlreadyOnboarded
		}

		if in.Role == models.RoleTeacher {
			skills, err := loadSkills(tx, in.SkillIDs)
			if err != nil {
				return err
			}
			teacher := models.Teacher{
				UserID:          user.ID,
				ExperienceYears: in.ExperienceYears,
				PricePerHour:    roundMoney(in.PricePerHour),
				Skills:          skills,
			}
			if err := tx.Create(&teacher).Error; err != nil {
				return dbErr(err, "create teacher", nil, ErrAlreadyOnboarded)
			}
		}

		now := time.Now().UTC()
		user.Role = in.Role
		user.OnboardedAt = &now
		if in.Bio != nil {
			user.Bio = in.Bio
		}
		if in.City != nil {
			user.City = in.City
		}
		if in.AvatarURL != nil {
			user.AvatarURL = in.AvatarURL
		}
		return dbErr(tx.Save(&user).Error, "save user", nil, nil)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("user_id", user.ID.String()).Str("role", user.Role).Msg("user onboarded")
	return &user, nil
}

type TeacherProfileUpdate struct {
	PricePerHour    *float64
	ExperienceYears *int
	SkillIDs        []uuid.UUID
}

func (s *TeacherService) UpdateProfile(ctx context.Context, p Principal, in TeacherProfileUpdate) (*models.Teacher, error) {
	if !p.IsTeacher() {
		return nil, ErrForbidden
	}
	if in.PricePerHour != nil && *in.PricePerHour <= 0 {
		return nil, Validation("price per hour must be greater than zero")
	}
	if in.ExperienceYears != nil && *in.ExperienceYears < 0 {
		return nil, Validation("experience years must not be negative")
	}

	var teacher models.Teacher
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&teacher, "id = ?", p.ProfileID).Error; err != nil {
			return dbErr(err, "load teacher", ErrTeacherNotFound, nil)
		}
		if in.PricePerHour != nil {
			teacher.PricePerHour = roundMoney(*in.PricePerHour)
		}
		if in.ExperienceYears != nil {
			teacher.ExperienceYears = *in.ExperienceYears
		}
		if err := tx.Omit("Skills", "User").Save(&teacher).Error; err != nil {
			return fmt.Errorf("save teacher: %w", err)
		}
		if in.SkillIDs != nil {
			skills, err := loadSkills(tx, in.SkillIDs)
			if err != nil {
				return err
			}
			if err := tx.Model(&teacher).Association("Skills").Replace(skills); err != nil {
				return fmt.Errorf("replace skills: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetTeacher(ctx, teacher.ID)
}

func loadSkills(tx *gorm.DB, ids []uuid.UUID) ([]*models.Skill, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	unique := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		unique[id] = struct{}{}
	}
	var skills []*models.Skill
	if err := tx.Where("id IN ?", ids).Find(&skills).Error; err != nil {
		return nil, fmt.Errorf("load skills: %w", err)
	}
	if len(skills) != len(unique) {
		return nil, ErrSkillNotFound
	}
	return skills, nil
}

func (s *TeacherService) ListSkills(ctx context.Context, search string) ([]models.Skill, error) {
	search = strings.ToLower(strings.TrimSpace(search))
	filter := Filter{}.When(search != "", where("LOWER(name) LIKE ?", "%"+search+"%"))

	skills := []models.Skill{}
	if err := filter.Scope(s.db.WithContext(ctx).Model(&models.Skill{})).Order("name").Find(&skills).Error; err != nil {
		return nil, fmt.Errorf("list skills: %w", err)
	}
	return skills, nil
}

func (s *TeacherService) CreateSkill(ctx context.Context, p Principal, name string) (*models.Skill, error) {
	if err := Authorize(p, ActSkillCreate); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, Validation("skill name is required")
	}

	var existing int64
	if err := s.db.WithContext(ctx).Model(&models.Skill{}).Where("LOWER(name) = ?", strings.ToLower(name)).Count(&existing).Error; err != nil {
		return nil, fmt.Errorf("check skill: %w", err)
	}
	if existing > 0 {
		return nil, Conflict("skill already exists")
	}

	skill := models.Skill{Name: name}
	if err := s.db.WithContext(ctx).Create(&skill).Error; err != nil {
		return nil, dbErr(err, "create skill", nil, Conflict("skill already exists"))
	}
	return &skill, nil
}

func (s *TeacherService) AddFavorite(ctx context.Context, p Principal, teacherID uuid.UUID) error {
	if err := Authorize(p, ActFavorite, p.ProfileID); err != nil {
		return err
	}
	db := s.db.WithContext(ctx)

	var teachers int64
	if err := db.Model(&models.Teacher{}).Where("id = ?", teacherID).Count(&teachers).Error; err != nil {
		return fmt.Errorf("check teacher: %w", err)
	}
	if teachers == 0 {
		return ErrTeacherNotFound
	}

	fav := models.Favorite{UserID: p.UserID, TeacherID: teacherID}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&fav).Error; err != nil {
		return fmt.Errorf("add favorite: %w", err)
	}
	return nil
}

func (s *TeacherService) RemoveFavorite(ctx context.Context, p Principal, teacherID uuid.UUID) error {
	if err := Authorize(p, ActFavorite, p.ProfileID); err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Where("user_id = ? AND teacher_id = ?", p.UserID, teacherID).Delete(&models.Favorite{})
	if res.Error != nil {
		return fmt.Errorf("remove favorite: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return NotFound("favorite not found")
	}
	return nil
}

func (s *TeacherService) ListFavorites(ctx context.Context, p Principal) ([]models.Teacher, error) {
	if err := Authorize(p, ActFavorite, p.ProfileID); err != nil {
		return nil, err
	}
	teachers := []models.Teacher{}
	err := s.db.WithContext(ctx).
		Joins("JOIN favorites ON favorites.teacher_id = teachers.id").
		Where("favorites.user_id = ?", p.UserID).
		Preload("User").
		Preload("Skills").
		Order("favorites.created_at DESC").
		Find(&teachers).Error
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	return teachers, nil
}

func deref[T any](v *T) T {
	var zero T
	if v == nil {
		return zero
	}
	return *v
}
