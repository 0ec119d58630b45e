package usecase

import (
	"context"
	"testing"
	"time"

	"nexcrm-backend/internal/contact/domain"
	"nexcrm-backend/internal/contact/dto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportContactsBatch_NewRows(t *testing.T) {
	uc, contacts, _ := newTestUsecase(nil)

	rows := []dto.ImportRow{
		{Email: "a@example.com", FirstName: "A"},
		{Email: "b@example.com", FirstName: "B"},
		{Email: "c@example.com", FirstName: "C"},
	}
	progress, err := uc.ImportContactsBatch(context.Background(), "u1", rows, OverwriteModeSkip, nil)

	require.NoError(t, err)
	assert.Equal(t, 3, progress.Total)
	assert.Equal(t, 3, progress.Processed)
	assert.Equal(t, 3, progress.Imported)
	assert.Equal(t, 0, progress.Skipped)
	assert.Equal(t, 0, progress.Errors)

	count, _ := contacts.CountByUser("u1")
	assert.Equal(t, int64(3), count)
}

func TestImportContactsBatch_SkipModeLeavesExistingUntouched(t *testing.T) {
	uc, contacts, _ := newTestUsecase(nil)
	id := domain.ContactIDFromEmail("a@example.com")
	contacts.put(&domain.Contact{
		ID:           id,
		UserID:       "u1",
		PrimaryEmail: "a@example.com",
		FirstName:    "Original",
	})

	rows := []dto.ImportRow{{Email: "A@Example.com", FirstName: "Replaced"}}
	progress, err := uc.ImportContactsBatch(context.Background(), "u1", rows, OverwriteModeSkip, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, progress.Skipped)
	assert.Equal(t, 0, progress.Imported)

	stored, _ := contacts.FindByID("u1", id)
	assert.Equal(t, "Original", stored.FirstName)
}

func TestImportContactsBatch_OverwriteReplacesMappedFields(t *testing.T) {
	uc, contacts, _ := newTestUsecase(nil)
	id := domain.ContactIDFromEmail("a@example.com")
	created := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	lastEmail := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	contacts.put(&domain.Contact{
		ID:              id,
		UserID:          "u1",
		PrimaryEmail:    "a@example.com",
		FirstName:       "Original",
		Company:         "Acme",
		EngagementScore: 90,
		Tags:            domain.EncodeStringList([]string{"vip"}),
		AISummary:       "long-standing customer",
		LastEmailDate:   &lastEmail,
		Archived:        true,
		CreatedAt:       created,
	})

	rows := []dto.ImportRow{{
		Email:           "a@example.com",
		FirstName:       "Updated",
		EngagementScore: 10,
		Tags:            []string{"new"},
	}}
	progress, err := uc.ImportContactsBatch(context.Background(), "u1", rows, OverwriteModeOverwrite, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, progress.Imported)

	stored, _ := contacts.FindByID("u1", id)
	// Every CSV-mapped field takes the row value, blank cells included
	assert.Equal(t, "Updated", stored.FirstName)
	assert.Equal(t, "", stored.Company)
	assert.Equal(t, 10, stored.EngagementScore)
	assert.Equal(t, []string{"new"}, domain.DecodeTags(stored.Tags))
	// CreatedAt, Archived and the non-CSV columns stay with the old row
	assert.Equal(t, created, stored.CreatedAt)
	assert.True(t, stored.Archived)
	assert.Equal(t, "long-standing customer", stored.AISummary)
	require.NotNil(t, stored.LastEmailDate)
	assert.Equal(t, lastEmail, *stored.LastEmailDate)
}

func TestImportContactsBatch_RowWithoutEmailIsError(t *testing.T) {
	uc, _, _ := newTestUsecase(nil)

	rows := []dto.ImportRow{
		{Email: "", FirstName: "NoEmail"},
		{Email: "ok@example.com"},
	}
	progress, err := uc.ImportContactsBatch(context.Background(), "u1", rows, OverwriteModeSkip, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, progress.Errors)
	assert.Equal(t, 1, progress.Imported)
	assert.Equal(t, 0, progress.Skipped)
	require.Len(t, progress.RowErrors, 1)
	assert.Equal(t, 0, progress.RowErrors[0].Row)
	assert.Contains(t, progress.RowErrors[0].Detail, "no email")
}

func TestImportContactsBatch_ProgressPerChunk(t *testing.T) {
	// Batch size 2 (from the test config) and 5 rows: three chunks
	uc, _, _ := newTestUsecase(nil)

	rows := []dto.ImportRow{
		{Email: "a@example.com"},
		{Email: "b@example.com"},
		{Email: "c@example.com"},
		{Email: "d@example.com"},
		{Email: "e@example.com"},
	}

	var snapshots []dto.ImportProgress
	_, err := uc.ImportContactsBatch(context.Background(), "u1", rows, OverwriteModeSkip, func(p dto.ImportProgress) {
		snapshots = append(snapshots, p)
	})

	require.NoError(t, err)
	require.Len(t, snapshots, 3)
	assert.Equal(t, 2, snapshots[0].Processed)
	assert.Equal(t, 4, snapshots[1].Processed)
	assert.Equal(t, 5, snapshots[2].Processed)
	assert.Equal(t, 5, snapshots[2].Imported)
}

func TestImportContactsBatch_UnknownModeDefaultsToSkip(t *testing.T) {
	uc, contacts, _ := newTestUsecase(nil)
	id := domain.ContactIDFromEmail("a@example.com")
	contacts.put(&domain.Contact{ID: id, UserID: "u1", PrimaryEmail: "a@example.com", FirstName: "Original"})

	rows := []dto.ImportRow{{Email: "a@example.com", FirstName: "Replaced"}}
	progress, err := uc.ImportContactsBatch(context.Background(), "u1", rows, "bogus", nil)

	require.NoError(t, err)
	assert.Equal(t, 1, progress.Skipped)
	stored, _ := contacts.FindByID("u1", id)
	assert.Equal(t, "Original", stored.FirstName)
}
