package services

import (
	"errors"
	"fmt"
	"sync"
)

var ErrUnknownActivity = errors.New("unknown routine activity")

type Activity struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type RoutineBlock struct {
	Title      string     `json:"title"`
	TimeRange  string     `json:"timeRange"`
	Activities []Activity `json:"activities"`
}

// DefaultRoutine is the fixed daily template. It is never persisted.
func DefaultRoutine() []RoutineBlock {
	return []RoutineBlock{
		{
			Title:     "Pagi",
			TimeRange: "05:00 - 08:00",
			Activities: []Activity{
				{ID: "wake", Text: "Bangun dan minum air putih"},
				{ID: "stretch", Text: "Peregangan 10 menit"},
				{ID: "breakfast", Text: "Sarapan bergizi"},
			},
		},
		{
			Title:     "Fokus Pagi",
			TimeRange: "08:00 - 12:00",
			Activities: []Activity{
				{ID: "plan", Text: "Tinjau prioritas hari ini"},
				{ID: "deep-work", Text: "Dua sesi pomodoro tugas utama"},
			},
		},
		{
			Title:     "Siang",
			TimeRange: "12:00 - 15:00",
			Activities: []Activity{
				{ID: "lunch", Text: "Makan siang tanpa gawai"},
				{ID: "walk", Text: "Jalan kaki singkat"},
				{ID: "admin", Text: "Balas pesan dan email"},
			},
		},
		{
			Title:     "Sore",
			TimeRange: "15:00 - 18:00",
			Activities: []Activity{
				{ID: "review", Text: "Selesaikan tugas tertunda"},
				{ID: "exercise", Text: "Olahraga 30 menit"},
			},
		},
		{
			Title:     "Malam",
			TimeRange: "18:00 - 22:00",
			Activities: []Activity{
				{ID: "reflect", Text: "Tulis refleksi harian"},
				{ID: "prepare", Text: "Siapkan rencana besok"},
				{ID: "screen-off", Text: "Matikan layar satu jam sebelum tidur"},
			},
		},
	}
}

type checkKey struct {
	block    int
	activity string
}

// Checklist is session-local check state over a routine template. Nothing
// resets it during the day; a fresh checklist starts from initiallyChecked.
type Checklist struct {
	template []RoutineBlock

	mu      sync.Mutex
	checked map[checkKey]bool
}

type ChecklistItem struct {
	Activity
	Checked bool `json:"checked"`
}

type ChecklistBlock struct {
	Title     string          `json:"title"`
	TimeRange string          `json:"timeRange"`
	Items     []ChecklistItem `json:"items"`
}

func NewChecklist(template []RoutineBlock, initiallyChecked bool) *Checklist {
	checklist := &Checklist{template: template, checked: make(map[checkKey]bool)}
	for blockIndex, block := range template {
		for _, activity := range block.Activities {
			checklist.checked[checkKey{block: blockIndex, activity: activity.ID}] = initiallyChecked
		}
	}
	return checklist
}

// Toggle flips one activity and returns its new state.
func (checklist *Checklist) Toggle(block int, activityID string) (bool, error) {
	key := checkKey{block: block, activity: activityID}

	checklist.mu.Lock()
	defer checklist.mu.Unlock()

	current, ok := checklist.checked[key]
	if !ok {
		return false, fmt.Errorf("%w: block %d activity %q", ErrUnknownActivity, block, activityID)
	}
	checklist.checked[key] = !current
	return !current, nil
}

func (checklist *Checklist) IsChecked(block int, activityID string) bool {
	checklist.mu.Lock()
	defer checklist.mu.Unlock()
	return checklist.checked[checkKey{block: block, activity: activityID}]
}

func (checklist *Checklist) Progress() (done int, total int) {
	checklist.mu.Lock()
	defer checklist.mu.Unlock()
	for _, checked := range checklist.checked {
		total++
		if checked {
			done++
		}
	}
	return done, total
}

func (checklist *Checklist) Blocks() []ChecklistBlock {
	checklist.mu.Lock()
	defer checklist.mu.Unlock()

	blocks := make([]ChecklistBlock, 0, len(checklist.template))
	for blockIndex, block := range checklist.template {
		items := make([]ChecklistItem, 0, len(block.Activities))
		for _, activity := range block.Activities {
			items = append(items, ChecklistItem{
				Activity: activity,
				Checked:  checklist.checked[checkKey{block: blockIndex, activity: activity.ID}],
			})
		}
		blocks = append(blocks, ChecklistBlock{Title: block.Title, TimeRange: block.TimeRange, Items: items})
	}
	return blocks
}
