package domain

// TotalBudget is the fixed amount, in whole pounds, each user may allocate.
const TotalBudget int64 = 5_000_000

// MaxAmount bounds any single amount and any configured budget, keeping
// budget arithmetic far from int64 overflow.
const MaxAmount int64 = 1_000_000_000_000

// DefaultMaxProjects is the size of the project catalogue shown on the dashboard.
const DefaultMaxProjects = 293

// CategoryTotal aggregates a user's allocations for one project category.
type CategoryTotal struct {
	Category string `db:"category"`
	Amount   int64  `db:"amount"`
	Projects int    `db:"projects"`
}

// Summary is the read side of a user's allocations.
type Summary struct {
	Budget         int64
	TotalAllocated int64
	Remaining      int64
	ProjectCount   int
	MaxProjects    int
	ByCategory     []CategoryTotal
}

// AllocationRow is one line of the allocation export.
type AllocationRow struct {
	ProjectID string `db:"project_id"`
	Name      string `db:"name"`
	Category  string `db:"category"`
	Status    string `db:"status"`
	Amount    int64  `db:"amount"`
}
