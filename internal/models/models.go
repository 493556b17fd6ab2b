package models

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Kind is the resource kind a task fetches.
type Kind string

const (
	KindData Kind = "data"
	KindFile Kind = "file"
)

const (
	StatusQueued  = "Queued"
	StatusRunning = "Running"
	StatusSuccess = "Success"
	StatusSkipped = "Skipped"
	StatusFailed  = "Failed"
)

type Connection struct {
	BaseURL        string `yaml:"base_url" json:"base_url"`
	UserAgent      string `yaml:"user_agent" json:"user_agent"`
	TimeoutSeconds int    `yaml:"timeout_seconds" json:"timeout_seconds"`
	PerPage        int    `yaml:"per_page" json:"per_page"`
	MaxPages       int    `yaml:"max_pages" json:"max_pages"`
	Workers        int    `yaml:"workers" json:"workers"`
}

type Auth struct {
	// Authenticated skips the public rate-limit check.
	Authenticated bool   `yaml:"authenticated" json:"authenticated"`
	Token         string `yaml:"token" json:"-"`
}

type RateLimit struct {
	Warning int `yaml:"warning" json:"warning"`
}

type Task struct {
	Name string `yaml:"name" json:"name"`
	Type Kind   `yaml:"type" json:"type"`
	// Cache enables content-identity checks before writing.
	Cache bool `yaml:"cache" json:"cache"`
	// Partition keys cache entries by task name. When false every task
	// shares the same partition.
	Partition bool `yaml:"partition" json:"partition"`
}

// CacheKey returns the partition this task's cache entries live under.
func (t Task) CacheKey() string {
	if t.Partition {
		return t.Name
	}
	return ""
}

// Sources is one source path or an ordered list of them. In YAML both a
// scalar and a sequence are accepted.
type Sources []string

func (s *Sources) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var one string
		if err := node.Decode(&one); err != nil {
			return err
		}
		if one == "" {
			*s = nil
			return nil
		}
		*s = Sources{one}
		return nil
	case yaml.SequenceNode:
		var many []string
		if err := node.Decode(&many); err != nil {
			return err
		}
		*s = many
		return nil
	default:
		return fmt.Errorf("src: expected string or list, got %v", node.Tag)
	}
}

type JobConfig struct {
	Name       string            `yaml:"name" json:"name"`
	Connection Connection        `yaml:"connection" json:"connection"`
	Src        Sources           `yaml:"src" json:"src"`
	Dest       string            `yaml:"dest" json:"dest"`
	Output     string            `yaml:"output" json:"output"`
	Filters    map[string]string `yaml:"filters" json:"filters"`
	Auth       Auth              `yaml:"auth" json:"auth"`
	RateLimit  RateLimit         `yaml:"rate_limit" json:"rate_limit"`
	Task       Task              `yaml:"task" json:"task"`
}

// PendingRequest is one fetch waiting in a batch. An empty Dest means the
// response is consumed by the caller and never cached or written.
type PendingRequest struct {
	Connection Connection
	Src        string
	Dest       string
	Task       Task
}

// Page is one unit of payload returned for a destination. Key is the page's
// own identity and is used as its slot when pages are merged.
type Page struct {
	Key  string
	Data json.RawMessage
}

// Response groups every page fetched for one destination.
type Response struct {
	Dest  string
	Pages []Page
	Task  Task
}

type WriteItem struct {
	Payload json.RawMessage
	Dest    string
	Kind    Kind
}

type CacheEntry struct {
	Task string `json:"task"`
	Dest string `json:"dest"`
	Kind Kind   `json:"kind"`
	ID   string `json:"unique_id"`
}

type Run struct {
	RunId  string `json:"run_id"`
	Job    string `json:"job"`
	Status string `json:"status"`
	Writes int    `json:"writes"`
	Error  string `json:"error,omitempty"`
}
