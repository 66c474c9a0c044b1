package model

// ActiveStatus is the lifecycle flag of a tracked URL, stored as 1 or 0.
type ActiveStatus int

const (
	StatusInactive ActiveStatus = 0
	StatusActive   ActiveStatus = 1
)

func (s ActiveStatus) IsActive() bool {
	return s == StatusActive
}

func (s ActiveStatus) String() string {
	if s == StatusActive {
		return "active"
	}
	return "inactive"
}

type URLRecord struct {
	ID             int64        `json:"id"`
	URL            string       `json:"url"`
	InputDateTime  Timestamp    `json:"inputDateTime"`
	ExpireDateTime Timestamp    `json:"expireDateTime"`
	ActiveStatus   ActiveStatus `json:"activeStatus"`
}

// Clone returns a copy safe to hand out from in-memory stores.
func (r *URLRecord) Clone() *URLRecord {
	c := *r
	return &c
}

type SaveRecordRequest struct {
	URL            string       `json:"url" binding:"required"`
	InputDateTime  Timestamp    `json:"inputDateTime"`
	ExpireDateTime Timestamp    `json:"expireDateTime"`
	ActiveStatus   ActiveStatus `json:"activeStatus"`
}

type UpdateRecordRequest struct {
	URL            string       `json:"url" binding:"required"`
	InputDateTime  Timestamp    `json:"inputDateTime"`
	ExpireDateTime Timestamp    `json:"expireDateTime"`
	ActiveStatus   ActiveStatus `json:"activeStatus"`
}

type StatusUpdate struct {
	ID           int64        `json:"id"`
	ActiveStatus ActiveStatus `json:"activeStatus"`
}

type SubmitEmbedRequest struct {
	EmbedCode string `json:"embedCode" binding:"required"`
}

// RegisterResult tells the caller whether the URL was already tracked.
type RegisterResult struct {
	Exists bool
	ID     int64
}

type SubmitResult struct {
	RegisterResult
	Record *URLRecord
}

type MessageResponse struct {
	Message string `json:"message"`
	ID      *int64 `json:"id,omitempty"`
}

type SubmitResponse struct {
	Message string     `json:"message"`
	ID      int64      `json:"id"`
	Record  *URLRecord `json:"record,omitempty"`
}

// SweepResult summarizes one reconciliation pass.
type SweepResult struct {
	Scanned        int `json:"scanned"`
	Unchanged      int `json:"unchanged"`
	Expired        int `json:"expired"`
	Reactivated    int `json:"reactivated"`
	Skipped        int `json:"skipped"`
	Notified       int `json:"notified"`
	NotifyFailures int `json:"notifyFailures"`
	WriteFailures  int `json:"writeFailures"`
}
