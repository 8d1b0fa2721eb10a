package analyzer

// Layout summarizes the directory structure and internal coupling of a
// codebase for pattern detection.
type Layout struct {
	// Dirs holds lower-cased directory names that contain parsed files,
	// including every ancestor segment below the root.
	Dirs map[string]bool
	// Packages is the number of directories holding an __init__.py.
	Packages int
	// ImportDensity is references to local modules per parsed file.
	ImportDensity float64
}

func (l Layout) hasAny(names ...string) bool {
	for _, n := range names {
		if l.Dirs[n] {
			return true
		}
	}
	return false
}

// PatternDetector contributes Label when Match holds for a layout.
type PatternDetector struct {
	Label string
	Match func(Layout) bool
}

// layer name sets, loosely following common Python project conventions.
var (
	presentationLayer = []string{"api", "views", "controllers", "handlers", "routes", "endpoints", "templates"}
	businessLayer     = []string{"services", "service", "domain", "core", "usecases", "logic"}
	dataLayer         = []string{"models", "repositories", "repository", "db", "dal", "persistence", "schemas"}
)

// DefaultPatterns returns the built-in architectural pattern detectors.
func DefaultPatterns() []PatternDetector {
	return []PatternDetector{
		{
			Label: "MVC",
			Match: func(l Layout) bool {
				return l.hasAny("models") && l.hasAny("views") && l.hasAny("controllers", "templates")
			},
		},
		{
			Label: "Layered architecture",
			Match: func(l Layout) bool {
				layers := 0
				for _, set := range [][]string{presentationLayer, businessLayer, dataLayer} {
					if l.hasAny(set...) {
						layers++
					}
				}
				return layers >= 2 && l.ImportDensity >= 0.25
			},
		},
		{
			Label: "Service-oriented structure",
			Match: func(l Layout) bool {
				return l.hasAny("services", "service") && l.ImportDensity >= 0.1
			},
		},
		{
			Label: "Modular package structure",
			Match: func(l Layout) bool { return l.Packages >= 3 },
		},
	}
}

// detectPatterns runs every detector. A panicking detector contributes
// nothing rather than failing the analysis.
func detectPatterns(detectors []PatternDetector, l Layout) []string {
	found := make(map[string]bool)
	for _, d := range detectors {
		if d.Match == nil || found[d.Label] {
			continue
		}
		if safeMatch(d, l) {
			found[d.Label] = true
		}
	}
	return sortedKeys(found)
}

func safeMatch(d PatternDetector, l Layout) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return d.Match(l)
}
