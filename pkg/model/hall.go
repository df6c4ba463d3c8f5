package model

type Hall struct {
	ID       int      `json:"id"`
	Name     string   `json:"name"`
	Capacity int      `json:"capacity"`
	Features []string `json:"features"`
}

var Halls = []Hall{
	{ID: 1, Name: "Auditorium", Capacity: 500, Features: []string{"Projector", "Sound System", "AC", "Stage"}},
	{ID: 2, Name: "Seminar Hall 1", Capacity: 100, Features: []string{"Projector", "AC", "Whiteboard"}},
	{ID: 3, Name: "Seminar Hall 2", Capacity: 80, Features: []string{"Projector", "AC"}},
	{ID: 4, Name: "Seminar Hall 3", Capacity: 60, Features: []string{"Whiteboard", "AC"}},
	{ID: 5, Name: "Seminar Hall 4", Capacity: 50, Features: []string{"Projector"}},
}

var Departments = []string{
	"Computer Science",
	"Electronics & Communication",
	"Mechanical Engineering",
	"Civil Engineering",
	"Electrical Engineering",
	"Information Technology",
}

func IsKnownHall(name string) bool {
	for _, h := range Halls {
		if h.Name == name {
			return true
		}
	}
	return false
}

// Catalog is the read-only listing served to clients.
type Catalog struct {
	Halls       []Hall   `json:"halls"`
	Departments []string `json:"departments"`
}
