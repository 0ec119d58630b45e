package usecase

import (
	"context"
	"fmt"
	"sync"

	"nexcrm-backend/internal/contact/domain"
	"nexcrm-backend/internal/contact/dto"
)

// OverwriteMode values for bulk import
const (
	OverwriteModeSkip      = "skip"
	OverwriteModeOverwrite = "overwrite"
)

// ImportContactsBatch upserts parsed CSV rows in fixed-size chunks. Rows
// within one chunk run concurrently; chunks run back to back, and
// onProgress fires with the running totals after each chunk. A row with no
// email counts as an error, never a skip. The existence check and the write
// are not atomic; concurrent imports of the same address can race, which
// the deterministic contact id reduces to a harmless double-write.
func (u *contactUsecase) ImportContactsBatch(ctx context.Context, userID string, rows []dto.ImportRow, overwriteMode string, onProgress func(dto.ImportProgress)) (*dto.ImportProgress, error) {
	if overwriteMode != OverwriteModeOverwrite {
		overwriteMode = OverwriteModeSkip
	}

	batchSize := u.config.ImportBatchSize
	if batchSize <= 0 {
		batchSize = 25
	}

	progress := &dto.ImportProgress{Total: len(rows)}
	var mu sync.Mutex

	for start := 0; start < len(rows); start += batchSize {
		end := start + batchSize
		if end > len(rows) {
			end = len(rows)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(rowIdx int) {
				defer wg.Done()

				outcome, rowErr := u.importRow(ctx, userID, &rows[rowIdx], overwriteMode)

				mu.Lock()
				defer mu.Unlock()
				progress.Processed++
				switch {
				case rowErr != nil:
					progress.Errors++
					progress.RowErrors = append(progress.RowErrors, dto.ImportError{
						Row:    rowIdx,
						Email:  rows[rowIdx].Email,
						Detail: rowErr.Error(),
					})
				case outcome == importSkipped:
					progress.Skipped++
				default:
					progress.Imported++
				}
			}(i)
		}
		wg.Wait()

		if onProgress != nil {
			mu.Lock()
			snapshot := *progress
			snapshot.RowErrors = append([]dto.ImportError(nil), progress.RowErrors...)
			mu.Unlock()
			onProgress(snapshot)
		}
	}

	return progress, nil
}

type importOutcome int

const (
	importWritten importOutcome = iota
	importSkipped
)

// importRow handles a single row: derive the deterministic id, check
// existence, honor the overwrite mode and write with a bounded timeout.
func (u *contactUsecase) importRow(ctx context.Context, userID string, row *dto.ImportRow, overwriteMode string) (importOutcome, error) {
	email := domain.NormalizeEmail(row.Email)
	if email == "" {
		return importWritten, fmt.Errorf("row has no email address")
	}

	id := domain.ContactIDFromEmail(email)
	existing, err := u.contacts.FindByID(userID, id)
	if err != nil {
		return importWritten, fmt.Errorf("existence check failed: %v", err)
	}

	if existing != nil && overwriteMode == OverwriteModeSkip {
		return importSkipped, nil
	}

	incoming := &domain.Contact{
		ID:              id,
		UserID:          userID,
		PrimaryEmail:    email,
		FirstName:       row.FirstName,
		LastName:        row.LastName,
		Company:         row.Company,
		Title:           row.Title,
		Phone:           row.Phone,
		Segment:         row.Segment,
		LeadSource:      row.LeadSource,
		EngagementScore: row.EngagementScore,
		Notes:           row.Notes,
	}
	incoming.Tags = domain.EncodeStringList(row.Tags)

	// Overwrite mode replaces every CSV-mapped field wholesale; only
	// CreatedAt, Archived and the non-CSV columns survive from the old row.
	record := incoming
	if existing != nil {
		record = domain.OverwriteContact(existing, incoming)
	}

	writeCtx, cancel := context.WithTimeout(ctx, u.config.ImportWriteTimeout)
	defer cancel()

	if err := u.contacts.Save(writeCtx, record); err != nil {
		return importWritten, fmt.Errorf("write failed: %v", err)
	}
	return importWritten, nil
}
