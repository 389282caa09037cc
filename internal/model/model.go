package model

// Entity is implemented by every server-owned record the client caches.
type Entity interface {
	EntityID() int64
}

type User struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

type Client struct {
	ID      int64   `json:"id"`
	Name    string  `json:"name"`
	Email   *string `json:"email"`
	Company *string `json:"company"`
	Stage   Stage   `json:"stage"`

	// NextActionDate is the follow-up reminder; nil when none is scheduled.
	NextActionDate *Date `json:"next_action_date"`
}

func (c Client) EntityID() int64 { return c.ID }

type Project struct {
	ID       int64         `json:"id"`
	ClientID int64         `json:"client_id"`
	Name     string        `json:"name"`
	Status   ProjectStatus `json:"status"`
	DueDate  *Date         `json:"due_date"`
}

func (p Project) EntityID() int64 { return p.ID }

type Task struct {
	ID        int64      `json:"id"`
	ProjectID int64      `json:"project_id"`
	Title     string     `json:"title"`
	Status    TaskStatus `json:"status"`
	DueDate   *Date      `json:"due_date"`
	Notes     *string    `json:"notes"`
}

func (t Task) EntityID() int64 { return t.ID }

// Str returns the value of an optional string, or "" when unset.
func Str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// StrPtr returns nil for blank strings.
func StrPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
