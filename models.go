package jobs

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// OfferStatus is the fine-grained status of a tracked job application.
type OfferStatus string

const (
	OfferInProgress    OfferStatus = "IN_PROGRESS"
	OfferAwaitingReply OfferStatus = "AWAITING_REPLY"
	OfferFollowUp      OfferStatus = "FOLLOW_UP"
	OfferRejected      OfferStatus = "REJECTED"
	OfferInterview     OfferStatus = "INTERVIEW"
	OfferAccepted      OfferStatus = "OFFER_ACCEPTED"
	OfferDeclined      OfferStatus = "OFFER_DECLINED"
)

// LifecycleStatus is the coarse bucket derived from OfferStatus for
// dashboards and counts.
type LifecycleStatus string

const (
	LifecycleApplied   LifecycleStatus = "APPLIED"
	LifecycleFollowUp  LifecycleStatus = "FOLLOW_UP"
	LifecycleRejection LifecycleStatus = "REJECTION"
	LifecycleInterview LifecycleStatus = "INTERVIEW"
	LifecycleOther     LifecycleStatus = "OTHER"
)

// lifecycleByOffer is the total OfferStatus -> LifecycleStatus mapping. Every
// OfferStatus must appear exactly once; Lifecycle falls back to
// LifecycleOther for values outside the closed set.
var lifecycleByOffer = map[OfferStatus]LifecycleStatus{
	OfferInProgress:    LifecycleApplied,
	OfferAwaitingReply: LifecycleApplied,
	OfferFollowUp:      LifecycleFollowUp,
	OfferRejected:      LifecycleRejection,
	OfferInterview:     LifecycleInterview,
	OfferAccepted:      LifecycleOther,
	OfferDeclined:      LifecycleOther,
}

// Lifecycle returns the coarse bucket for the status.
func (s OfferStatus) Lifecycle() LifecycleStatus {
	if ls, ok := lifecycleByOffer[s]; ok {
		return ls
	}
	return LifecycleOther
}

// Valid reports whether s belongs to the closed OfferStatus set.
func (s OfferStatus) Valid() bool {
	_, ok := lifecycleByOffer[s]
	return ok
}

// OfferStatuses lists the closed set in a stable order.
func OfferStatuses() []OfferStatus {
	return []OfferStatus{
		OfferInProgress,
		OfferAwaitingReply,
		OfferFollowUp,
		OfferRejected,
		OfferInterview,
		OfferAccepted,
		OfferDeclined,
	}
}

// DashboardBucket is the reporting bucket used by the status count endpoints.
type DashboardBucket string

const (
	BucketInProgress DashboardBucket = "IN_PROGRESS"
	BucketAwaiting   DashboardBucket = "AWAITING"
	BucketInterview  DashboardBucket = "INTERVIEW"
	BucketRejected   DashboardBucket = "REJECTED"
)

// offersByBucket folds offer statuses into the four dashboard buckets.
var offersByBucket = map[DashboardBucket][]OfferStatus{
	BucketInProgress: {OfferInProgress, OfferAccepted},
	BucketAwaiting:   {OfferAwaitingReply, OfferFollowUp},
	BucketInterview:  {OfferInterview},
	BucketRejected:   {OfferRejected, OfferDeclined},
}

// DashboardBuckets lists the buckets in display order.
func DashboardBuckets() []DashboardBucket {
	return []DashboardBucket{BucketInProgress, BucketAwaiting, BucketInterview, BucketRejected}
}

// BucketOfferStatuses returns the offer statuses folded into the bucket.
func BucketOfferStatuses(b DashboardBucket) []OfferStatus {
	return offersByBucket[b]
}

// ParseDashboardBucket validates a caller supplied bucket name.
func ParseDashboardBucket(raw string) (DashboardBucket, bool) {
	b := DashboardBucket(strings.ToUpper(strings.TrimSpace(raw)))
	_, ok := offersByBucket[b]
	return b, ok
}

// Contract is the contract type of a tracked application.
type Contract string

const (
	ContractPermanent Contract = "PERMANENT"
	ContractFixedTerm Contract = "FIXED_TERM"
	ContractFreelance Contract = "FREELANCE"
	ContractTemp      Contract = "TEMP"
	ContractMission   Contract = "MISSION"
)

func (c Contract) Valid() bool {
	switch c {
	case ContractPermanent, ContractFixedTerm, ContractFreelance, ContractTemp, ContractMission:
		return true
	}
	return false
}

func Contracts() []Contract {
	return []Contract{ContractPermanent, ContractFixedTerm, ContractFreelance, ContractTemp, ContractMission}
}

// WorkMode is where the work happens.
type WorkMode string

const (
	WorkModeRemote WorkMode = "REMOTE"
	WorkModeHybrid WorkMode = "HYBRID"
	WorkModeOnSite WorkMode = "ON_SITE"
)

func (m WorkMode) Valid() bool {
	switch m {
	case WorkModeRemote, WorkModeHybrid, WorkModeOnSite:
		return true
	}
	return false
}

func WorkModes() []WorkMode {
	return []WorkMode{WorkModeRemote, WorkModeHybrid, WorkModeOnSite}
}

// WorkTime is the weekly time commitment.
type WorkTime string

const (
	WorkTimeFull WorkTime = "FULL_TIME"
	WorkTimePart WorkTime = "PART_TIME"
)

func (t WorkTime) Valid() bool {
	return t == WorkTimeFull || t == WorkTimePart
}

func WorkTimes() []WorkTime {
	return []WorkTime{WorkTimeFull, WorkTimePart}
}

// Role names. Roles are immutable reference data seeded at startup.
const (
	RoleUser  = "ROLE_USER"
	RoleAdmin = "ROLE_ADMIN"
)

// Role is a named role with an admin flag. Users reference roles, never own
// them.
type Role struct {
	bun.BaseModel `bun:"table:roles,alias:rol"`
	ID            uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name          string    `bun:"name,notnull,unique" json:"name,omitempty"`
	IsAdmin       bool      `bun:"is_admin,notnull" json:"is_admin,omitempty"`
}

// User is the identity model. At most one outstanding stored token and one
// remember-me token exist per user; both are cleared together on any
// authentication failure or explicit revoke.
type User struct {
	bun.BaseModel        `bun:"table:users,alias:usr"`
	ID                   uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email                string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash         string     `bun:"password_hash,notnull" json:"-"`
	Name                 string     `bun:"name,notnull" json:"name,omitempty"`
	Firstname            string     `bun:"firstname,notnull" json:"firstname,omitempty"`
	Phone                string     `bun:"phone_number" json:"phone_number,omitempty"`
	RoleID               uuid.UUID  `bun:"role_id,notnull,type:uuid" json:"-"`
	Role                 *Role      `bun:"rel:belongs-to,join:role_id=id" json:"role,omitempty"`
	Enabled              bool       `bun:"enabled,notnull" json:"enabled,omitempty"`
	GDPROptIn            bool       `bun:"gdpr_opt_in,notnull" json:"gdpr_opt_in,omitempty"`
	AuthToken            *string    `bun:"auth_token,nullzero" json:"-"`
	RememberMeToken      *string    `bun:"remember_me_token,nullzero" json:"-"`
	EmailVerificationKey *string    `bun:"email_verification_key,nullzero" json:"-"`
	CreatedAt            *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt            *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// IsAdmin reports whether the user's role carries the admin flag.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role != nil && u.Role.IsAdmin
}

// Job is a tracked job application, owned by exactly one user.
type Job struct {
	bun.BaseModel   `bun:"table:jobs,alias:job"`
	ID              uuid.UUID      `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Position        string         `bun:"position,notnull" json:"position,omitempty"`
	Description     string         `bun:"description" json:"description,omitempty"`
	Company         string         `bun:"company,notnull" json:"company,omitempty"`
	City            string         `bun:"city,notnull" json:"city,omitempty"`
	Contract        Contract       `bun:"contract,notnull" json:"contract,omitempty"`
	WorkTime        WorkTime       `bun:"work_time,notnull" json:"work_time,omitempty"`
	WorkMode        WorkMode       `bun:"work_mode,notnull" json:"work_mode,omitempty"`
	OfferStatus     OfferStatus    `bun:"offer_status,notnull" json:"offer_status,omitempty"`
	OfficialListing bool           `bun:"official_listing" json:"official_listing,omitempty"`
	ApplicationDate *time.Time     `bun:"application_date,nullzero" json:"application_date,omitempty"`
	UserID          uuid.UUID      `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	User            *User          `bun:"rel:belongs-to,join:user_id=id" json:"-"`
	StatusEvents    []*StatusEvent `bun:"rel:has-many,join:id=job_id" json:"status_events,omitempty"`
	CreatedAt       *time.Time     `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt       *time.Time     `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// StatusEvent is an immutable audit record of a status transition. Events are
// never edited or deleted individually; they go away only when their job is
// deleted.
type StatusEvent struct {
	bun.BaseModel   `bun:"table:job_status_events,alias:jse"`
	ID              uuid.UUID       `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	JobID           uuid.UUID       `bun:"job_id,notnull,type:uuid" json:"job_id,omitempty"`
	LifecycleStatus LifecycleStatus `bun:"lifecycle_status,notnull" json:"lifecycle_status,omitempty"`
	OfferStatus     OfferStatus     `bun:"offer_status,notnull" json:"offer_status,omitempty"`
	CreatedAt       *time.Time      `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// NewStatusEvent derives the audit record for the job's current offer status.
func NewStatusEvent(job *Job) *StatusEvent {
	now := time.Now()
	return &StatusEvent{
		ID:              uuid.New(),
		JobID:           job.ID,
		LifecycleStatus: job.OfferStatus.Lifecycle(),
		OfferStatus:     job.OfferStatus,
		CreatedAt:       &now,
	}
}
