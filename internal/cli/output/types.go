package output

// RenderOutput is the JSON form of a rendered template.
type RenderOutput struct {
	Template string         `json:"template"`
	SQL      string         `json:"sql"`
	Style    string         `json:"style"`
	Args     []any          `json:"args,omitempty"`
	Named    map[string]any `json:"named,omitempty"`
	Names    []string       `json:"names,omitempty"`
}

// CheckOutput is the JSON form of a check run.
type CheckOutput struct {
	Checked int          `json:"checked"`
	Failed  int          `json:"failed"`
	Errors  []CheckError `json:"errors"`
}

// CheckError describes one template that failed to parse.
type CheckError struct {
	Path    string `json:"path"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
	Message string `json:"message"`
}

// TemplateInfo describes one template in list output.
type TemplateInfo struct {
	Name        string   `json:"name"`
	Path        string   `json:"path"`
	Description string   `json:"description,omitempty"`
	Style       string   `json:"style"`
	Strict      bool     `json:"strict"`
	Tags        []string `json:"tags,omitempty"`
	Idents      []string `json:"idents"`
}

// ListOutput is the JSON form of list.
type ListOutput struct {
	Templates []TemplateInfo `json:"templates"`
	Errors    []CheckError   `json:"errors,omitempty"`
}

// WatchOutput is one JSON line emitted by watch.
type WatchOutput struct {
	Path    string `json:"path"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}
