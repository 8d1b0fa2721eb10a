package analyzer

// ParseStatus records whether a file contributed to the structural counts.
type ParseStatus struct {
	OK     bool   `json:"ok" yaml:"ok"`
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// String renders the status the way skipped entries are reported.
func (s ParseStatus) String() string {
	if s.OK {
		return "ok"
	}
	return "skipped: " + s.Reason
}

// FileMetrics is the per-file result of the parse and extraction pass.
// It is produced once per file and consumed by the aggregation step.
type FileMetrics struct {
	Path           string      `json:"path" yaml:"path"`
	Lines          int         `json:"lines" yaml:"lines"`
	Classes        int         `json:"classes" yaml:"classes"`
	Functions      int         `json:"functions" yaml:"functions"`
	AsyncFunctions int         `json:"async_functions" yaml:"async_functions"`
	Imports        []string    `json:"imports,omitempty" yaml:"imports,omitempty"`
	Decorators     []string    `json:"decorators,omitempty" yaml:"decorators,omitempty"`
	Frameworks     []string    `json:"frameworks,omitempty" yaml:"frameworks,omitempty"`
	EntryPoint     bool        `json:"entry_point,omitempty" yaml:"entry_point,omitempty"`
	Preview        string      `json:"-" yaml:"-"`
	Status         ParseStatus `json:"status" yaml:"status"`
}

// CodeSample is a representative excerpt kept for downstream context.
type CodeSample struct {
	Path       string `json:"path" yaml:"path"`
	Lines      int    `json:"lines" yaml:"lines"`
	EntryPoint bool   `json:"entry_point" yaml:"entry_point"`
	Preview    string `json:"preview" yaml:"preview"`
}

// SkippedFile is an eligible file excluded from the structural counts.
type SkippedFile struct {
	Path   string `json:"path" yaml:"path"`
	Reason string `json:"reason" yaml:"reason"`
}

// Structure holds layout facts about the codebase root.
type Structure struct {
	HasTests    bool     `json:"has_tests" yaml:"has_tests"`
	HasDocs     bool     `json:"has_docs" yaml:"has_docs"`
	EntryPoints []string `json:"entry_points" yaml:"entry_points"`
	Packages    []string `json:"packages" yaml:"packages"`
}

// CodebaseMetrics is the aggregate record for one analysis run.
type CodebaseMetrics struct {
	Root           string         `json:"root" yaml:"root"`
	FilesAttempted int            `json:"files_attempted" yaml:"files_attempted"`
	FilesParsed    int            `json:"files_parsed" yaml:"files_parsed"`
	TotalLines     int            `json:"total_lines" yaml:"total_lines"`
	TotalClasses   int            `json:"total_classes" yaml:"total_classes"`
	TotalFunctions int            `json:"total_functions" yaml:"total_functions"`
	AsyncFunctions int            `json:"async_functions" yaml:"async_functions"`
	TotalImports   int            `json:"total_imports" yaml:"total_imports"`
	ImportDensity  float64        `json:"import_density" yaml:"import_density"`
	Frameworks     []string       `json:"frameworks" yaml:"frameworks"`
	Patterns       []string       `json:"patterns" yaml:"patterns"`
	Structure      Structure      `json:"structure" yaml:"structure"`
	Samples        []CodeSample   `json:"samples" yaml:"samples"`
	Skipped        []SkippedFile  `json:"skipped" yaml:"skipped"`
	TopImports     map[string]int `json:"top_imports,omitempty" yaml:"top_imports,omitempty"`
}
