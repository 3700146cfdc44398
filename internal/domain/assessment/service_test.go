package assessment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"perfreview/internal/domain/auth"
	"perfreview/internal/domain/directory"
)

var (
	admin  = auth.Identity{EmployeeID: "admin", IsSA: true}
	leader = auth.Identity{EmployeeID: "lead", IsRJ: true}
	judge  = auth.Identity{EmployeeID: "judge", IsPJ: true}
	other  = auth.Identity{EmployeeID: "other", IsRJ: true, IsPJ: true}
)

func testDirectory() *directory.Service {
	return directory.NewService(directory.NewMemoryStore(directory.Organisation{
		Employees: []directory.Employee{
			{ID: "admin", Name: "Admin", IsSA: true},
			{ID: "lead", Name: "Lead", IsRJ: true, IsPJ: true},
			{ID: "judge", Name: "Judge", IsPJ: true},
			{ID: "other", Name: "Other", IsRJ: true, IsPJ: true},
			{ID: "emp", Name: "Emp", ImmediateLeader: "lead", DirectJudgeID: "judge"},
			{ID: "dual", Name: "Dual", ImmediateLeader: "lead", DirectJudgeID: "lead"},
			{ID: "judged", Name: "Judged", ImmediateLeader: "other", DirectJudgeID: "lead"},
		},
		Periods: []directory.Period{{ID: 1, Name: "2024-H1"}, {ID: 2, Name: "2024-H2"}},
	}))
}

type countingObserver struct {
	mu       sync.Mutex
	outcomes map[string]int
	retries  int
}

func (o *countingObserver) SubmissionOutcome(outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.outcomes == nil {
		o.outcomes = map[string]int{}
	}
	o.outcomes[outcome]++
}

func (o *countingObserver) ConflictRetry() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.retries++
}

func newTestService(t *testing.T) (*Service, *MemoryStore, *countingObserver) {
	t.Helper()
	store := NewMemoryStore()
	observer := &countingObserver{}
	return NewService(store, testDirectory(), 10, observer), store, observer
}

func competency(scores ...float64) *CompetencySubmission {
	c := &CompetencySubmission{Mode: CompetencyModeScore}
	for i, score := range scores {
		item := LineItem{Name: "item", Score: score}
		if i%2 == 0 {
			c.Professional = append(c.Professional, item)
		} else {
			c.General = append(c.General, item)
		}
	}
	return c
}

func product(v float64) *float64 { return &v }

func request(target string, sub Submission) SubmitRequest {
	return SubmitRequest{TargetID: target, PeriodID: 1, Submission: sub}
}

func TestSubmitAuthorizationMatrix(t *testing.T) {
	ctx := context.Background()
	full := Submission{Competency: competency(30, 20), Product: product(25), Bonus: &BonusSubmission{Score: 5, Reason: "launch"}}

	t.Run("super admin writes every category", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		rec, err := svc.Submit(ctx, admin, request("judged", full))
		require.NoError(t, err)
		assert.Equal(t, 80.0, rec.TotalScore)
		assert.Equal(t, GradeBPlus, rec.Grade)
	})

	t.Run("leader writes competency for a direct report", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		_, err := svc.Submit(ctx, leader, request("emp", Submission{Competency: competency(40)}))
		assert.NoError(t, err)
	})

	t.Run("leader cannot write for a non-report", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		_, err := svc.Submit(ctx, leader, request("judged", Submission{Competency: competency(40)}))
		var authErr *AuthorizationError
		require.True(t, errors.As(err, &authErr))
		assert.Equal(t, []Category{CategoryCompetency}, authErr.Categories)
	})

	t.Run("leader cannot write product or bonus", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		_, err := svc.Submit(ctx, leader, request("emp", full))
		var authErr *AuthorizationError
		require.True(t, errors.As(err, &authErr))
		assert.Equal(t, []Category{CategoryProduct, CategoryBonus}, authErr.Categories)
	})

	t.Run("judge writes product for assigned employee only", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		_, err := svc.Submit(ctx, judge, request("emp", Submission{Product: product(20)}))
		assert.NoError(t, err)

		_, err = svc.Submit(ctx, judge, request("judged", Submission{Product: product(20)}))
		assert.True(t, errors.Is(err, ErrForbidden))
	})
}

func TestSubmitUnauthorizedLeavesStoreUnchanged(t *testing.T) {
	ctx := context.Background()
	svc, store, observer := newTestService(t)
	full := Submission{Competency: competency(30), Product: product(25), Bonus: &BonusSubmission{Score: 5}}

	_, err := svc.Submit(ctx, other, request("emp", full))
	var authErr *AuthorizationError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, []Category{CategoryCompetency, CategoryProduct, CategoryBonus}, authErr.Categories)
	assert.Equal(t, 0, store.Len())

	before, err := svc.Submit(ctx, leader, request("emp", Submission{Competency: competency(50)}))
	require.NoError(t, err)

	_, err = svc.Submit(ctx, other, request("emp", full))
	assert.True(t, errors.Is(err, ErrForbidden))

	// a partly authorized submission is rejected whole
	_, err = svc.Submit(ctx, leader, request("emp", Submission{Competency: competency(10), Product: product(40)}))
	assert.True(t, errors.Is(err, ErrForbidden))

	after, found, err := store.Get(ctx, "emp", 1)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, before, after)
	assert.Equal(t, 3, observer.outcomes[OutcomeForbidden])
}

func TestSubmitIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService(t)
	sub := Submission{Competency: competency(40, 25)}

	first, err := svc.Submit(ctx, leader, request("emp", sub))
	require.NoError(t, err)
	second, err := svc.Submit(ctx, leader, request("emp", sub))
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.TotalScore, second.TotalScore)
	assert.Equal(t, first.Grade, second.Grade)
	assert.Equal(t, 1, store.Len())
}

func TestSubmitMergesCategoriesFromDifferentRoles(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	_, err := svc.Submit(ctx, leader, request("emp", Submission{Competency: competency(40, 25)}))
	require.NoError(t, err)
	rec, err := svc.Submit(ctx, judge, request("emp", Submission{Product: product(20)}))
	require.NoError(t, err)

	require.NotNil(t, rec.CompetencyScore)
	require.NotNil(t, rec.ProductScore)
	assert.Equal(t, 65.0, *rec.CompetencyScore)
	assert.Equal(t, 20.0, *rec.ProductScore)
	assert.Nil(t, rec.Bonus)
	assert.Equal(t, 85.0, rec.TotalScore)
	assert.Equal(t, GradeBPlus, rec.Grade)
	assert.Equal(t, int64(2), rec.Version)

	rec, err = svc.Submit(ctx, admin, request("emp", Submission{Bonus: &BonusSubmission{Score: 5, Reason: "award"}}))
	require.NoError(t, err)
	assert.Equal(t, 90.0, rec.TotalScore)
	assert.Equal(t, GradeA, rec.Grade)
	assert.Equal(t, 65.0, *rec.CompetencyScore)
}

func TestSubmitConcurrentDisjointCategories(t *testing.T) {
	ctx := context.Background()
	for i := 0; i < 50; i++ {
		svc, store, _ := newTestService(t)

		var wg sync.WaitGroup
		errs := make([]error, 2)
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, errs[0] = svc.Submit(ctx, leader, request("emp", Submission{Competency: competency(50)}))
		}()
		go func() {
			defer wg.Done()
			_, errs[1] = svc.Submit(ctx, judge, request("emp", Submission{Product: product(30)}))
		}()
		wg.Wait()

		require.NoError(t, errs[0])
		require.NoError(t, errs[1])
		rec, found, err := store.Get(ctx, "emp", 1)
		require.NoError(t, err)
		require.True(t, found)
		require.NotNil(t, rec.CompetencyScore)
		require.NotNil(t, rec.ProductScore)
		assert.Equal(t, 80.0, rec.TotalScore)
		assert.Equal(t, 1, store.Len())
	}
}

func TestSubmitNotFound(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)
	sub := Submission{Product: product(1)}

	_, err := svc.Submit(ctx, admin, request("ghost", sub))
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = svc.Submit(ctx, admin, SubmitRequest{TargetID: "emp", PeriodID: 9, Submission: sub})
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = svc.Submit(ctx, auth.Identity{EmployeeID: "ghost", IsSA: true}, request("emp", sub))
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSubmitValidation(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService(t)

	_, err := svc.Submit(ctx, admin, SubmitRequest{Submission: Submission{Product: product(-1)}})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	fields := make([]string, 0, len(verr.Issues))
	for _, issue := range verr.Issues {
		fields = append(fields, issue.Field)
	}
	assert.ElementsMatch(t, []string{"targetId", "periodId", "submission.product"}, fields)

	_, err = svc.Submit(ctx, admin, request("emp", Submission{Competency: &CompetencySubmission{}}))
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = svc.Submit(ctx, admin, request("emp", Submission{Competency: &CompetencySubmission{
		General: []LineItem{{Name: "teamwork", Score: 12, MaxScore: 10}},
	}}))
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Equal(t, 0, store.Len())
}

func TestSubmitEmptySubmission(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	_, err := svc.Submit(ctx, leader, request("emp", Submission{}))
	assert.True(t, errors.Is(err, ErrNoPermission))

	first, err := svc.Submit(ctx, leader, request("emp", Submission{Competency: competency(72)}))
	require.NoError(t, err)

	_, err = svc.Submit(ctx, other, request("emp", Submission{}))
	assert.True(t, errors.Is(err, ErrNoPermission))

	svc.Now = func() time.Time { return first.LastModifiedAt.Add(time.Minute) }
	touched, err := svc.Submit(ctx, judge, request("emp", Submission{}))
	require.NoError(t, err)
	assert.Equal(t, first.TotalScore, touched.TotalScore)
	assert.Equal(t, GradeB, touched.Grade)
	assert.True(t, touched.LastModifiedAt.After(first.LastModifiedAt))
}

func TestListSubordinatesListsEachOnce(t *testing.T) {
	svc, _, _ := newTestService(t)

	summaries, err := svc.ListSubordinates(context.Background(), "lead")
	require.NoError(t, err)
	ids := make([]string, 0, len(summaries))
	for _, s := range summaries {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"dual", "emp", "judged"}, ids)

	_, err = svc.ListSubordinates(context.Background(), "ghost")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestReadsAreGatedByViewPermission(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)
	_, err := svc.Submit(ctx, leader, request("emp", Submission{Competency: competency(50)}))
	require.NoError(t, err)

	for _, caller := range []auth.Identity{admin, leader, judge} {
		rec, err := svc.Get(ctx, caller, "emp", 1)
		require.NoError(t, err, caller.EmployeeID)
		assert.Equal(t, 50.0, rec.TotalScore)

		records, err := svc.ListForEmployee(ctx, caller, "emp")
		require.NoError(t, err)
		assert.Len(t, records, 1)
	}

	_, err = svc.Get(ctx, other, "emp", 1)
	assert.True(t, errors.Is(err, ErrNoPermission))
	_, err = svc.ListForEmployee(ctx, other, "emp")
	assert.True(t, errors.Is(err, ErrNoPermission))

	_, err = svc.Get(ctx, admin, "emp", 2)
	assert.True(t, errors.Is(err, ErrNotFound))

	perm, err := svc.ResolveViewPermission(ctx, judge, "emp")
	require.NoError(t, err)
	assert.Equal(t, ViewPermission{HasPermission: true, Level: PermissionJudge}, perm)
}

func TestResolveWritePermissionsRequiresKnownCaller(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	perms, err := svc.ResolveWritePermissions(ctx, leader, "emp")
	require.NoError(t, err)
	assert.True(t, perms.Competency)
	assert.False(t, perms.Bonus)

	ghost := auth.Identity{EmployeeID: "ghost", IsSA: true}
	_, err = svc.ResolveWritePermissions(ctx, ghost, "emp")
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = svc.ResolveWritePermissions(ctx, leader, "nobody")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func searchIDs(page SearchPage) []string {
	ids := make([]string, 0, len(page.Items))
	for _, item := range page.Items {
		ids = append(ids, item.Employee.ID)
	}
	return ids
}

func TestSearchIsScopedToViewableEmployees(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)
	_, err := svc.Submit(ctx, leader, request("emp", Submission{Competency: competency(50)}))
	require.NoError(t, err)

	tests := []struct {
		name   string
		caller auth.Identity
		want   []string
	}{
		{"admin", admin, []string{"admin", "dual", "emp", "judge", "judged", "lead", "other"}},
		{"leader", leader, []string{"dual", "emp", "judged"}},
		{"judge", judge, []string{"emp"}},
		{"no reports", auth.Identity{EmployeeID: "emp"}, []string{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			page, err := svc.Search(ctx, tc.caller, SearchRequest{PeriodID: 1})
			require.NoError(t, err)
			assert.Equal(t, tc.want, searchIDs(page))
			assert.Equal(t, len(tc.want), page.Total)
			for _, item := range page.Items {
				perm, err := svc.ResolveViewPermission(ctx, tc.caller, item.Employee.ID)
				require.NoError(t, err)
				assert.True(t, perm.HasPermission, item.Employee.ID)
			}
		})
	}

	page, err := svc.Search(ctx, judge, SearchRequest{PeriodID: 1})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.NotNil(t, page.Items[0].Record)
	assert.Equal(t, 50.0, page.Items[0].Record.TotalScore)

	page, err = svc.Search(ctx, judge, SearchRequest{PeriodID: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Nil(t, page.Items[0].Record)
}

func TestSearchFiltersAndPages(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	page, err := svc.Search(ctx, admin, SearchRequest{PeriodID: 1, Name: "JUD"})
	require.NoError(t, err)
	assert.Equal(t, []string{"judge", "judged"}, searchIDs(page))

	page, err = svc.Search(ctx, admin, SearchRequest{PeriodID: 1, LeaderID: "lead"})
	require.NoError(t, err)
	assert.Equal(t, []string{"dual", "emp"}, searchIDs(page))

	page, err = svc.Search(ctx, leader, SearchRequest{PeriodID: 1, EmployeeID: "other"})
	require.NoError(t, err)
	assert.Empty(t, page.Items)

	page, err = svc.Search(ctx, admin, SearchRequest{PeriodID: 1, Limit: 2, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"dual", "emp"}, searchIDs(page))
	assert.Equal(t, 7, page.Total)

	page, err = svc.Search(ctx, admin, SearchRequest{PeriodID: 1, Limit: 5000})
	require.NoError(t, err)
	assert.Equal(t, MaxSearchLimit, page.Limit)
}

func TestSearchRejectsBadRequests(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	_, err := svc.Search(ctx, admin, SearchRequest{})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "periodId", verr.Issues[0].Field)

	_, err = svc.Search(ctx, admin, SearchRequest{PeriodID: 99})
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = svc.Search(ctx, auth.Identity{EmployeeID: "ghost", IsSA: true}, SearchRequest{PeriodID: 1})
	assert.True(t, errors.Is(err, ErrNotFound))
}

type conflictStore struct {
	*MemoryStore
	mu        sync.Mutex
	begins    int
	rollbacks int
	saveErr   error
}

func (c *conflictStore) Begin(ctx context.Context) (Tx, error) {
	c.mu.Lock()
	c.begins++
	c.mu.Unlock()
	tx, err := c.MemoryStore.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &conflictTx{Tx: tx, store: c}, nil
}

type conflictTx struct {
	Tx
	store *conflictStore
}

func (t *conflictTx) Save(context.Context, Record, int64) (Record, error) {
	return Record{}, t.store.saveErr
}

func (t *conflictTx) Rollback(ctx context.Context) error {
	t.store.mu.Lock()
	t.store.rollbacks++
	t.store.mu.Unlock()
	return t.Tx.Rollback(ctx)
}

func TestSubmitRetriesConflictsThenGivesUp(t *testing.T) {
	store := &conflictStore{MemoryStore: NewMemoryStore(), saveErr: ErrConflict}
	observer := &countingObserver{}
	svc := NewService(store, testDirectory(), 3, observer)

	_, err := svc.Submit(context.Background(), admin, request("emp", Submission{Product: product(10)}))
	assert.True(t, errors.Is(err, ErrConflict))
	assert.Equal(t, 4, store.begins)
	assert.Equal(t, 4, store.rollbacks)
	assert.Equal(t, 3, observer.retries)
	assert.Equal(t, 1, observer.outcomes[OutcomeConflict])
	assert.Equal(t, 0, store.Len())
}

func TestSubmitDoesNotRetryStoreErrors(t *testing.T) {
	store := &conflictStore{MemoryStore: NewMemoryStore(), saveErr: errors.New("disk on fire")}
	svc := NewService(store, testDirectory(), 3, nil)

	_, err := svc.Submit(context.Background(), admin, request("emp", Submission{Product: product(10)}))
	assert.True(t, errors.Is(err, ErrStore))
	assert.Equal(t, 1, store.begins)
	assert.Equal(t, 1, store.rollbacks)
}
