package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	syncdomain "nexcrm-backend/internal/sync/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeJobRepo struct {
	jobs    []*syncdomain.SyncJob
	nextID  int
	deleted []string
}

func (r *fakeJobRepo) Create(job *syncdomain.SyncJob) error {
	r.nextID++
	job.ID = fmt.Sprintf("job-%d", r.nextID)
	copied := *job
	r.jobs = append(r.jobs, &copied)
	return nil
}

func (r *fakeJobRepo) Update(job *syncdomain.SyncJob) error {
	for i, j := range r.jobs {
		if j.ID == job.ID {
			copied := *job
			r.jobs[i] = &copied
			return nil
		}
	}
	return errors.New("job not found")
}

func (r *fakeJobRepo) ListByUser(userID string, limit int) ([]syncdomain.SyncJob, error) {
	var out []syncdomain.SyncJob
	for _, j := range r.jobs {
		if j.UserID == userID && len(out) < limit {
			out = append(out, *j)
		}
	}
	return out, nil
}

func (r *fakeJobRepo) ListIDsExceptMostRecent(userID string) ([]string, error) {
	var newest *syncdomain.SyncJob
	for _, j := range r.jobs {
		if j.UserID != userID {
			continue
		}
		if newest == nil || j.StartedAt.After(newest.StartedAt) {
			newest = j
		}
	}
	var ids []string
	for _, j := range r.jobs {
		if j.UserID == userID && (newest == nil || j.ID != newest.ID) {
			ids = append(ids, j.ID)
		}
	}
	return ids, nil
}

func (r *fakeJobRepo) DeleteByIDs(userID string, ids []string) (int, []error) {
	r.deleted = append(r.deleted, ids...)
	remaining := r.jobs[:0]
	for _, j := range r.jobs {
		drop := false
		for _, id := range ids {
			if j.ID == id && j.UserID == userID {
				drop = true
				break
			}
		}
		if !drop {
			remaining = append(remaining, j)
		}
	}
	deleted := len(r.jobs) - len(remaining)
	r.jobs = remaining
	return deleted, nil
}

func (r *fakeJobRepo) lastJob() *syncdomain.SyncJob {
	if len(r.jobs) == 0 {
		return nil
	}
	return r.jobs[len(r.jobs)-1]
}

type fakeSettingsRepo struct {
	settings map[string]*syncdomain.SyncSettings
	saves    int
}

func newFakeSettingsRepo() *fakeSettingsRepo {
	return &fakeSettingsRepo{settings: make(map[string]*syncdomain.SyncSettings)}
}

func (r *fakeSettingsRepo) Get(userID string) (*syncdomain.SyncSettings, error) {
	if s, ok := r.settings[userID]; ok {
		copied := *s
		return &copied, nil
	}
	return nil, nil
}

func (r *fakeSettingsRepo) Save(settings *syncdomain.SyncSettings) error {
	r.saves++
	copied := *settings
	r.settings[settings.UserID] = &copied
	return nil
}

type fakeAccountRepo struct {
	accounts map[string]*syncdomain.GoogleAccount
	saves    int
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{accounts: make(map[string]*syncdomain.GoogleAccount)}
}

func (r *fakeAccountRepo) FindByUserID(userID string) (*syncdomain.GoogleAccount, error) {
	if a, ok := r.accounts[userID]; ok {
		copied := *a
		return &copied, nil
	}
	return nil, nil
}

func (r *fakeAccountRepo) FindByEmail(email string) (*syncdomain.GoogleAccount, error) {
	for _, a := range r.accounts {
		if a.Email == email {
			copied := *a
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeAccountRepo) Save(account *syncdomain.GoogleAccount) error {
	r.saves++
	copied := *account
	r.accounts[account.UserID] = &copied
	return nil
}

func (r *fakeAccountRepo) Delete(userID string) error {
	delete(r.accounts, userID)
	return nil
}

func (r *fakeAccountRepo) ListAll() ([]syncdomain.GoogleAccount, error) {
	var out []syncdomain.GoogleAccount
	for _, a := range r.accounts {
		out = append(out, *a)
	}
	return out, nil
}

type fakeIMAP struct {
	msgs  []syncdomain.NormalizedMessage
	err   error
	calls int
}

func (f *fakeIMAP) FetchRecent(ctx context.Context, host string, port int, username, password string, limit int) ([]syncdomain.NormalizedMessage, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.msgs, nil
}

// newTestRunner wires a runner around in-memory fakes with a linked gmail
// account whose cached token is still valid.
func newTestRunner(provider *fakeProvider) (*Runner, *fakeJobRepo, *fakeSettingsRepo, *fakeAccountRepo, *fakeIMAP) {
	jobs := &fakeJobRepo{}
	settings := newFakeSettingsRepo()
	accounts := newFakeAccountRepo()
	imap := &fakeIMAP{}

	accounts.Save(&syncdomain.GoogleAccount{
		UserID:      "u1",
		Email:       "u1@example.com",
		Provider:    "gmail",
		AccessToken: "cached-token",
		TokenExpiry: time.Now().Add(time.Hour),
	})
	accounts.saves = 0

	tokens := &TokenProvider{accounts: accounts}
	engine := NewEngine(provider, newFakeThreadRepo(), newFakeMessageRepo(), newFakeResolver(nil))
	runner := NewRunner(jobs, settings, accounts, tokens, engine, imap)
	return runner, jobs, settings, accounts, imap
}

func TestResolveMode(t *testing.T) {
	r := &Runner{}
	now := time.Now()
	recent := now.Add(-10 * 24 * time.Hour)
	stale := now.Add(-45 * 24 * time.Hour)

	// No settings yet: everything is a full pass
	assert.Equal(t, syncdomain.SyncTypeInitial, r.resolveMode(syncdomain.SyncTypeAuto, nil, now))
	assert.Equal(t, syncdomain.SyncTypeInitial, r.resolveMode(syncdomain.SyncTypeIncremental, nil, now))

	eligible := &syncdomain.SyncSettings{LastSyncHistoryID: 42, LastSyncAt: &recent}
	assert.Equal(t, syncdomain.SyncTypeIncremental, r.resolveMode(syncdomain.SyncTypeAuto, eligible, now))
	// An explicit initial request always runs full, cursor or not
	assert.Equal(t, syncdomain.SyncTypeInitial, r.resolveMode(syncdomain.SyncTypeInitial, eligible, now))

	// Stale cursor falls back to full
	staleSettings := &syncdomain.SyncSettings{LastSyncHistoryID: 42, LastSyncAt: &stale}
	assert.Equal(t, syncdomain.SyncTypeInitial, r.resolveMode(syncdomain.SyncTypeAuto, staleSettings, now))

	// A last-sync time without a cursor is not enough
	noCursor := &syncdomain.SyncSettings{LastSyncAt: &recent}
	assert.Equal(t, syncdomain.SyncTypeInitial, r.resolveMode(syncdomain.SyncTypeAuto, noCursor, now))
}

func TestRunSyncJob_FullPassAdvancesCursor(t *testing.T) {
	sentAt := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	provider := &fakeProvider{
		refs: []syncdomain.ThreadRef{{ThreadID: "t1"}},
		details: map[string]*syncdomain.ThreadDetail{
			"t1": {
				ThreadID:  "t1",
				HistoryID: 321,
				Messages:  []syncdomain.NormalizedMessage{*testMessage("m1", "t1", "a@example.com", sentAt)},
			},
		},
	}
	runner, jobs, settings, _, _ := newTestRunner(provider)

	result := runner.RunSyncJob(context.Background(), "u1", syncdomain.SyncTypeAuto)

	assert.True(t, result.Success)
	assert.Equal(t, "u1", result.UserID)
	assert.Equal(t, syncdomain.SyncTypeInitial, result.Mode)
	assert.Equal(t, 1, result.ProcessedThreads)
	assert.Equal(t, 1, result.ProcessedMessages)

	saved, _ := settings.Get("u1")
	require.NotNil(t, saved)
	assert.Equal(t, uint64(321), saved.LastSyncHistoryID)
	require.NotNil(t, saved.LastSyncAt)

	job := jobs.lastJob()
	require.NotNil(t, job)
	assert.Equal(t, syncdomain.SyncStatusComplete, job.Status)
	assert.Equal(t, 1, job.ProcessedThreads)
	require.NotNil(t, job.FinishedAt)
}

func TestRunSyncJob_AutoPicksIncrementalWithFreshCursor(t *testing.T) {
	sentAt := time.Date(2026, 5, 2, 9, 0, 0, 0, time.UTC)
	provider := &fakeProvider{
		history:   []syncdomain.MessageAddedRef{{MessageID: "m1", ThreadID: "t1"}},
		historyID: 600,
		messages: map[string]*syncdomain.NormalizedMessage{
			"m1": testMessage("m1", "t1", "a@example.com", sentAt),
		},
	}
	runner, _, settings, _, _ := newTestRunner(provider)

	lastSync := time.Now().Add(-2 * 24 * time.Hour)
	settings.Save(&syncdomain.SyncSettings{UserID: "u1", LastSyncHistoryID: 500, LastSyncAt: &lastSync, AutoSyncEnabled: true})

	result := runner.RunSyncJob(context.Background(), "u1", syncdomain.SyncTypeAuto)

	assert.True(t, result.Success)
	assert.Equal(t, syncdomain.SyncTypeIncremental, result.Mode)

	saved, _ := settings.Get("u1")
	assert.Equal(t, uint64(600), saved.LastSyncHistoryID)
}

func TestRunSyncJob_NotLinked(t *testing.T) {
	runner, jobs, _, accounts, _ := newTestRunner(&fakeProvider{})
	accounts.Delete("u1")

	result := runner.RunSyncJob(context.Background(), "u1", syncdomain.SyncTypeAuto)

	assert.False(t, result.Success)
	assert.True(t, result.NotLinked)
	assert.False(t, result.ReauthRequired)

	job := jobs.lastJob()
	require.NotNil(t, job)
	assert.Equal(t, syncdomain.SyncStatusError, job.Status)
	assert.NotEmpty(t, job.ErrorMessage)
}

func TestRunSyncJob_ReauthRequired(t *testing.T) {
	runner, _, _, accounts, _ := newTestRunner(&fakeProvider{})
	// Expired access token and no refresh token: relink is the only way out
	accounts.Save(&syncdomain.GoogleAccount{
		UserID:      "u1",
		Email:       "u1@example.com",
		Provider:    "gmail",
		AccessToken: "stale",
		TokenExpiry: time.Now().Add(-time.Hour),
	})

	result := runner.RunSyncJob(context.Background(), "u1", syncdomain.SyncTypeAuto)

	assert.False(t, result.Success)
	assert.True(t, result.ReauthRequired)
	assert.False(t, result.NotLinked)
}

func TestRunSyncJob_FatalSyncErrorRecordsItemErrors(t *testing.T) {
	provider := &fakeProvider{listErr: errors.New("backend down")}
	runner, jobs, settings, _, _ := newTestRunner(provider)

	result := runner.RunSyncJob(context.Background(), "u1", syncdomain.SyncTypeAuto)

	assert.False(t, result.Success)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "threads.list", result.Errors[0].ItemID)

	job := jobs.lastJob()
	assert.Equal(t, syncdomain.SyncStatusError, job.Status)
	assert.Contains(t, job.ErrorMessage, "threads.list")

	// Failed pass never advances the cursor
	saved, _ := settings.Get("u1")
	assert.Nil(t, saved)
}

func TestRunSyncJob_IMAPAccount(t *testing.T) {
	sentAt := time.Date(2026, 5, 3, 9, 0, 0, 0, time.UTC)
	runner, _, _, accounts, imap := newTestRunner(&fakeProvider{})
	accounts.Save(&syncdomain.GoogleAccount{
		UserID:       "u1",
		Email:        "u1@example.com",
		Provider:     "imap",
		IMAPHost:     "mail.example.com",
		IMAPPort:     993,
		IMAPPassword: "secret",
	})
	imap.msgs = []syncdomain.NormalizedMessage{
		*testMessage("imap-1", "imap-1", "a@example.com", sentAt),
	}

	result := runner.RunSyncJob(context.Background(), "u1", syncdomain.SyncTypeAuto)

	assert.True(t, result.Success)
	assert.Equal(t, 1, imap.calls)
	assert.Equal(t, 1, result.ProcessedMessages)
}

func TestRunSyncForAllUsers_SkipsDisabledAutoSync(t *testing.T) {
	sentAt := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	provider := &fakeProvider{
		refs: []syncdomain.ThreadRef{{ThreadID: "t1"}},
		details: map[string]*syncdomain.ThreadDetail{
			"t1": {ThreadID: "t1", HistoryID: 1, Messages: []syncdomain.NormalizedMessage{*testMessage("m1", "t1", "a@example.com", sentAt)}},
		},
	}
	runner, _, settings, accounts, _ := newTestRunner(provider)
	accounts.Save(&syncdomain.GoogleAccount{
		UserID:      "u2",
		Email:       "u2@example.com",
		Provider:    "gmail",
		AccessToken: "cached",
		TokenExpiry: time.Now().Add(time.Hour),
	})
	settings.Save(&syncdomain.SyncSettings{UserID: "u2", AutoSyncEnabled: false})

	results := runner.RunSyncForAllUsers(context.Background())

	require.Len(t, results, 1)
	assert.Equal(t, "u1", results[0].UserID)
}

func TestClearSyncHistory(t *testing.T) {
	runner, jobs, _, _, _ := newTestRunner(&fakeProvider{})

	// Only one job: nothing to purge
	jobs.Create(&syncdomain.SyncJob{UserID: "u1", StartedAt: time.Now()})
	result := runner.ClearSyncHistory("u1")
	assert.True(t, result.Success)
	assert.Equal(t, 0, result.Deleted)

	// Four jobs: the three oldest go
	base := time.Now()
	for i := 1; i <= 3; i++ {
		jobs.Create(&syncdomain.SyncJob{UserID: "u1", StartedAt: base.Add(time.Duration(i) * time.Minute)})
	}
	result = runner.ClearSyncHistory("u1")
	assert.True(t, result.Success)
	assert.Equal(t, 3, result.Deleted)

	remaining, _ := jobs.ListByUser("u1", 10)
	assert.Len(t, remaining, 1)
}
