package services

import (
	"testing"

	"github.com/anjiri1684/teacherin/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFirstID(t *testing.T) {
	f := newFixture(t)
	tara := f.teacher(t, "tara", 100000)

	id, err := firstID(f.db.Model(&models.Teacher{}).Where("user_id = ?", tara.UserID), "id")
	require.NoError(t, err)
	assert.Equal(t, tara.ProfileID, id)

	userID, err := firstID(f.db.Model(&models.Teacher{}).Where("id = ?", tara.ProfileID), "user_id")
	require.NoError(t, err)
	assert.Equal(t, tara.UserID, userID)

	missing, err := firstID(f.db.Model(&models.Teacher{}).Where("user_id = ?", uuid.New()), "id")
	require.NoError(t, err)
	assert.Equal(t, uuid.Nil, missing)
}
