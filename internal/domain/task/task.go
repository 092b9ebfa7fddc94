// Package task enumerates the provider tasks tracked by an initial search.
package task

// Task identifies one provider completion tracked during the initial search.
type Task string

// Recognized tasks. Gazetteer is a configuration key only: it expands into
// its two sub-tasks, which report completion independently.
const (
	Gazetteer                      Task = "gazetteer"
	GazetteerStreetsOrHouseNumbers Task = "gazetteer_streetsOrHouseNumbers"
	GazetteerStreetKeys            Task = "gazetteer_streetKeys"
	ElasticSearch                  Task = "elasticSearch"
	Komoot                         Task = "komoot"
	Tree                           Task = "tree"
	GDI                            Task = "gdi"
	SemanticTopics                 Task = "semanticTopics"
)

// Known lists the configuration keys that arm an initial-search task.
var Known = []Task{Gazetteer, ElasticSearch, Komoot, Tree, GDI, SemanticTopics}

// IsKnown reports whether t is a recognized configuration key.
func (t Task) IsKnown() bool {
	for _, k := range Known {
		if t == k {
			return true
		}
	}
	return false
}

// Subtasks returns the tracked tasks for a configuration key.
func (t Task) Subtasks() []Task {
	if t == Gazetteer {
		return []Task{GazetteerStreetsOrHouseNumbers, GazetteerStreetKeys}
	}
	return []Task{t}
}

// Expand turns active configuration keys into tracked tasks, dropping
// unknown keys and duplicates while keeping first-seen order.
func Expand(keys []string) []Task {
	seen := make(map[Task]struct{})
	var out []Task
	for _, k := range keys {
		t := Task(k)
		if !t.IsKnown() {
			continue
		}
		for _, sub := range t.Subtasks() {
			if _, ok := seen[sub]; ok {
				continue
			}
			seen[sub] = struct{}{}
			out = append(out, sub)
		}
	}
	return out
}
