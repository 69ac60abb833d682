package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/anjiri1684/teacherin/models"
	"github.com/anjiri1684/teacherin/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestAdminUsers(t *testing.T) {
	f := newFixture(t)
	svc := NewAdminService(f.db, f.log)
	admin := f.admin(t)
	sam := f.student(t, "sam")
	tara := f.teacher(t, "tara", 100000)
	idle := f.teacher(t, "idle", 100000)
	f.booking(t, sam, tara, base, time.Hour, models.BookingPending)
	ctx := context.Background()

	users, err := svc.ListUsers(ctx, admin, UserQuery{Role: models.RoleTeacher, Page: utils.NewPageRequest(1, 10)})
	require.NoError(t, err)
	assert.Len(t, users.Data, 2)

	_, err = svc.ListUsers(ctx, admin, UserQuery{Role: "ROOT", Page: utils.NewPageRequest(1, 10)})
	requireKind(t, err, KindValidation)
	_, err = svc.ListUsers(ctx, sam, UserQuery{Page: utils.NewPageRequest(1, 10)})
	requireKind(t, err, KindForbidden)

	toggled, err := svc.ToggleUserStatus(ctx, admin, sam.UserID)
	require.NoError(t, err)
	assert.False(t, toggled.IsActive)
	toggled, err = svc.ToggleUserStatus(ctx, admin, sam.UserID)
	require.NoError(t, err)
	assert.True(t, toggled.IsActive)

	_, err = svc.ToggleUserStatus(ctx, admin, admin.UserID)
	requireKind(t, err, KindValidation)

	requireKind(t, svc.DeleteUser(ctx, admin, sam.UserID), KindConflict)
	requireKind(t, svc.DeleteUser(ctx, admin, tara.UserID), KindConflict)

	require.NoError(t, svc.DeleteUser(ctx, admin, idle.UserID))
	var left int64
	require.NoError(t, f.db.Model(&models.Teacher{}).Where("id = ?", idle.ProfileID).Count(&left).Error)
	assert.Zero(t, left)
	requireKind(t, svc.DeleteUser(ctx, admin, idle.UserID), KindNotFound)
}

func seedTransactions(t *testing.T, f *fixture) {
	t.Helper()
	sam := f.student(t, "Sam Student")
	tara := f.teacher(t, "Tara Teacher", 100000)

	paid := f.payment(t, f.booking(t, sam, tara, base, time.Hour, models.BookingPaid), "ORDER-1")
	require.NoError(t, f.db.Model(&paid).Update("status", models.PaymentSuccess).Error)
	failed := f.payment(t, f.booking(t, sam, tara, base.Add(2*time.Hour), time.Hour, models.BookingCancelled), "ORDER-2")
	require.NoError(t, f.db.Model(&failed).Update("status", models.PaymentFailed).Error)
	f.payment(t, f.booking(t, sam, tara, base.Add(4*time.Hour), time.Hour, models.BookingPending), "ORDER-3")
}

func TestTransactionsAndStats(t *testing.T) {
	f := newFixture(t)
	svc := NewAdminService(f.db, f.log)
	admin := f.admin(t)
	seedTransactions(t, f)
	ctx := context.Background()

	stats, err := svc.TransactionStats(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, TransactionStats{
		TotalTransactions:      3,
		SuccessfulTransactions: 1,
		FailedTransactions:     1,
		TotalRevenue:           100000,
	}, stats)

	page, err := svc.ListTransactions(ctx, admin, TransactionQuery{Status: models.PaymentSuccess, Page: utils.NewPageRequest(1, 10)})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "ORDER-1", page.Data[0].GatewayRef)
	assert.Equal(t, "Sam Student", page.Data[0].Booking.Student.FullName)

	from := base
	to := base.Add(-time.Hour)
	_, err = svc.ListTransactions(ctx, admin, TransactionQuery{From: &from, To: &to, Page: utils.NewPageRequest(1, 10)})
	requireKind(t, err, KindValidation)
	_, err = svc.ListTransactions(ctx, admin, TransactionQuery{Status: "LOST", Page: utils.NewPageRequest(1, 10)})
	requireKind(t, err, KindValidation)
}

func TestExportTransactions(t *testing.T) {
	f := newFixture(t)
	svc := NewAdminService(f.db, f.log)
	admin := f.admin(t)
	seedTransactions(t, f)
	ctx := context.Background()

	t.Run("csv", func(t *testing.T) {
		report, err := svc.ExportTransactions(ctx, admin, TransactionQuery{}, "")
		require.NoError(t, err)
		assert.Equal(t, "text/csv", report.ContentType)
		assert.True(t, strings.HasSuffix(report.Filename, ".csv"))

		records, err := csv.NewReader(bytes.NewReader(report.Body)).ReadAll()
		require.NoError(t, err)
		require.Len(t, records, 4)
		assert.Equal(t, reportHeaders, records[0])
		assert.Equal(t, []string{"ORDER-1", "Sam Student", "Tara Teacher", "SUCCESS", "100000.00"},
			[]string{records[1][0], records[1][2], records[1][3], records[1][6], records[1][7]})
	})

	t.Run("xlsx", func(t *testing.T) {
		report, err := svc.ExportTransactions(ctx, admin, TransactionQuery{Status: models.PaymentFailed}, FormatXLSX)
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(report.Filename, ".xlsx"))

		book, err := excelize.OpenReader(bytes.NewReader(report.Body))
		require.NoError(t, err)
		defer book.Close()
		rows, err := book.GetRows(reportSheet)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "ORDER-2", rows[1][0])
		assert.Equal(t, models.PaymentFailed, rows[1][6])
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := svc.ExportTransactions(ctx, admin, TransactionQuery{}, "pdf")
		requireKind(t, err, KindValidation)
	})

	t.Run("admins only", func(t *testing.T) {
		_, err := svc.ExportTransactions(ctx, f.student(t, "eve"), TransactionQuery{}, FormatCSV)
		requireKind(t, err, KindForbidden)
	})
}

func TestDashboards(t *testing.T) {
	f := newFixture(t)
	svc := NewDashboardService(f.db)
	admin := f.admin(t)
	seedTransactions(t, f)
	ctx := context.Background()

	var sam models.User
	require.NoError(t, f.db.Where("full_name = ?", "Sam Student").First(&sam).Error)
	student := Principal{UserID: sam.ID, Role: sam.Role, ProfileID: sam.ID}

	sd, err := svc.Student(ctx, student)
	require.NoError(t, err)
	assert.EqualValues(t, 3, sd.Stats.TotalBookings)
	assert.Equal(t, 100000.0, sd.Stats.TotalSpent)
	assert.Len(t, sd.UpcomingBookings, 2, "cancelled bookings are not upcoming")

	_, err = svc.Teacher(ctx, student)
	requireKind(t, err, KindForbidden)

	ad, err := svc.Admin(ctx, admin)
	require.NoError(t, err)
	assert.EqualValues(t, 3, ad.Stats.TotalUsers)
	assert.EqualValues(t, 1, ad.Stats.TotalTeachers)
	assert.EqualValues(t, 3, ad.Stats.TotalBookings)
	assert.EqualValues(t, 1, ad.BookingsByStatus[models.BookingPaid])
	assert.Equal(t, 100000.0, ad.Stats.TotalRevenue)
}
