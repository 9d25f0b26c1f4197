package course

import "time"

type Course struct {
	ID         int    `json:"id" db:"id"`
	Code       string `json:"code" db:"code"`
	Title      string `json:"title" db:"title"`
	Instructor string `json:"instructor" db:"instructor"`
	Credits    int    `json:"credits" db:"credits"`
	Capacity   int    `json:"capacity" db:"capacity"`
	Enrolled   int    `json:"enrolled" db:"enrolled"`
}

// SeatsLeft returns the number of seats still available.
func (c Course) SeatsLeft() int {
	return c.Capacity - c.Enrolled
}

func (c Course) IsFull() bool {
	return c.Enrolled >= c.Capacity
}

// Enrollment links a student to a course they hold a seat in.
type Enrollment struct {
	StudentID string    `db:"student_id"`
	CourseID  int       `db:"course_id"`
	CreatedAt time.Time `db:"created_at"` // UTC
}

// Schedule is the set of courses a student holds.
type Schedule struct {
	Courses      []Course `json:"courses"`
	TotalCredits int      `json:"total_credits"`
}

func NewSchedule(courses []Course) Schedule {
	if courses == nil {
		courses = []Course{}
	}
	return Schedule{Courses: courses, TotalCredits: SumCredits(courses)}
}

func SumCredits(courses []Course) int {
	var total int
	for _, c := range courses {
		total += c.Credits
	}
	return total
}

// DefaultCatalog is the list of courses offered each semester.
func DefaultCatalog() []Course {
	return []Course{
		{ID: 101, Code: "AM2301", Title: "Applied Mathematics", Instructor: "Mrs Shrawani Mitkari", Credits: 4, Capacity: 30},
		{ID: 102, Code: "CSE2304", Title: "Data Structures", Instructor: "Mrs Monalisa Hati", Credits: 3, Capacity: 50},
		{ID: 103, Code: "FL-301", Title: "Foreign Language", Instructor: "Mrs Surekha Athawade", Credits: 4, Capacity: 40},
		{ID: 104, Code: "DSD2303", Title: "Digital logic and Computer Architecture", Instructor: "Mrs Saranya Pandian", Credits: 3, Capacity: 25},
		{ID: 105, Code: "CSE2302", Title: "Data Base Management system", Instructor: "Dr Dipak Raskar", Credits: 2, Capacity: 60},
		{ID: 106, Code: "CSE2308", Title: "Java Programming", Instructor: "Dr Deepika Shekhawat", Credits: 3, Capacity: 30},
	}
}
