package models

// Course represents a course an assessment is scheduled against.
// Courses are owned by the academic catalogue; this service only reads them.
type Course struct {
	ID          int64   `json:"id" db:"id"`
	Code        string  `json:"code" db:"code"`
	Name        string  `json:"name" db:"name"`
	Description *string `json:"description,omitempty" db:"description"` // Nullable
}
