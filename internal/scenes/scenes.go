package scenes

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"reelsmith/internal/services"
)

// Scene is a narrated scene declaration and its authoring position.
type Scene struct {
	Name string `json:"name" yaml:"name"`
	// Order is the 1-based source line of the declaration.
	Order int `json:"order" yaml:"order"`
}

// Result is the outcome of a static scan.
type Result struct {
	// Scenes lists qualifying scenes in declaration order.
	Scenes []Scene
	// Duplicates names scenes declared more than once. The last declaration wins.
	Duplicates []string
}

// Ordering returns the name to authoring order lookup for the result.
func (r Result) Ordering() Ordering {
	return NewOrdering(r.Scenes)
}

// Ordering maps scene names to their authoring order. The zero value is an
// empty ordering.
type Ordering struct {
	scenes []Scene
	order  map[string]int
}

// NewOrdering builds an ordering from scenes. Later entries replace earlier
// ones with the same name.
func NewOrdering(scenes []Scene) Ordering {
	o := Ordering{order: make(map[string]int, len(scenes))}
	for _, scene := range scenes {
		if _, ok := o.order[scene.Name]; ok {
			o.scenes = removeScene(o.scenes, scene.Name)
		}
		o.order[scene.Name] = scene.Order
		o.scenes = append(o.scenes, scene)
	}
	return o
}

// Order reports the authoring position of name.
func (o Ordering) Order(name string) (int, bool) {
	pos, ok := o.order[name]
	return pos, ok
}

// Contains reports whether name is part of the scene set.
func (o Ordering) Contains(name string) bool {
	_, ok := o.order[name]
	return ok
}

// Len returns the number of scenes.
func (o Ordering) Len() int {
	return len(o.scenes)
}

// Scenes returns a copy of the scenes in authoring order.
func (o Ordering) Scenes() []Scene {
	return append([]Scene(nil), o.scenes...)
}

// Names returns scene names in authoring order.
func (o Ordering) Names() []string {
	names := make([]string, len(o.scenes))
	for i, scene := range o.scenes {
		names[i] = scene.Name
	}
	return names
}

// Unit identifies a content unit: the source file holding scene declarations.
type Unit struct {
	// Name is the argument the unit was resolved from.
	Name string
	// Source is the absolute path of the source file.
	Source string
	// Basename is the source file name without extension. The renderer uses it
	// for its output directory and the merged video is named after it.
	Basename string
}

// ResolveUnit maps a content unit argument to its source file. "chapter1" and
// "chapter1.py" resolve to the same unit.
func ResolveUnit(arg, sourceExt string) (Unit, error) {
	trimmed := strings.TrimSpace(arg)
	if trimmed == "" {
		return Unit{}, services.Wrap(services.ErrConfiguration, "locate", "resolve unit", "content unit name is empty", nil)
	}
	if sourceExt == "" {
		sourceExt = ".py"
	}
	source := trimmed
	if !strings.EqualFold(filepath.Ext(source), sourceExt) {
		source += sourceExt
	}
	abs, err := filepath.Abs(source)
	if err != nil {
		return Unit{}, services.Wrap(services.ErrConfiguration, "locate", "resolve unit", source, err)
	}
	base := filepath.Base(abs)
	return Unit{
		Name:     trimmed,
		Source:   abs,
		Basename: strings.TrimSuffix(base, filepath.Ext(base)),
	}, nil
}

// LocateFile scans the source file at path for scenes carrying marker.
func LocateFile(path, marker string) (Result, error) {
	file, err := os.Open(path)
	if err != nil {
		return Result{}, services.Wrap(services.ErrDiscovery, "locate", "open content unit", path, err)
	}
	defer file.Close()
	return Locate(file, marker)
}

// Locate scans Python source for classes that list marker among their bases.
// Nothing is executed. A source without qualifying scenes yields an empty
// result and no error.
func Locate(r io.Reader, marker string) (Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Result{}, services.Wrap(services.ErrDiscovery, "locate", "read content unit", "", err)
	}
	marker = strings.TrimSpace(marker)
	if marker == "" {
		return Result{}, services.Wrap(services.ErrConfiguration, "locate", "", "scene marker is empty", nil)
	}
	return scan(string(data), marker), nil
}

func scan(src, marker string) Result {
	var result Result
	seen := make(map[string]bool)

	lex := newLexer(src)
	var prev token
	for {
		tok := lex.next()
		if tok.kind == tokEOF {
			break
		}
		if tok.kind == tokName && tok.text == "class" && !(prev.kind == tokOp && prev.text == ".") {
			if scene, ok := parseDeclaration(lex, tok.line, marker); ok {
				if seen[scene.Name] {
					result.Scenes = removeScene(result.Scenes, scene.Name)
					result.Duplicates = append(result.Duplicates, scene.Name)
				}
				seen[scene.Name] = true
				result.Scenes = append(result.Scenes, scene)
			}
			prev = token{}
			continue
		}
		prev = tok
	}
	return result
}

// parseDeclaration reads `Name(bases)` after a class keyword and reports a
// scene when one of the bases names marker.
func parseDeclaration(lex *lexer, line int, marker string) (Scene, bool) {
	name := lex.next()
	if name.kind != tokName {
		return Scene{}, false
	}
	open := lex.next()
	if open.kind != tokOp || open.text != "(" {
		return Scene{}, false
	}

	var (
		args  [][]token
		cur   []token
		depth = 1
	)
	for depth > 0 {
		tok := lex.next()
		if tok.kind == tokEOF {
			return Scene{}, false
		}
		if tok.kind == tokOp {
			switch tok.text {
			case "(", "[", "{":
				depth++
			case ")", "]", "}":
				depth--
				if depth == 0 {
					continue
				}
			case ",":
				if depth == 1 {
					args = append(args, cur)
					cur = nil
					continue
				}
			}
		}
		cur = append(cur, tok)
	}
	args = append(args, cur)

	for _, arg := range args {
		if baseMatches(arg, marker) {
			return Scene{Name: name.text, Order: line}, true
		}
	}
	return Scene{}, false
}

// baseMatches accepts `Marker` and dotted forms such as `pkg.Marker`, each
// optionally subscripted as in `Marker[int]`. Keyword arguments and starred
// expressions never match.
func baseMatches(arg []token, marker string) bool {
	arg = trimSubscript(arg)
	if len(arg) == 0 || len(arg)%2 == 0 {
		return false
	}
	for i, tok := range arg {
		if i%2 == 0 {
			if tok.kind != tokName {
				return false
			}
			continue
		}
		if tok.kind != tokOp || tok.text != "." {
			return false
		}
	}
	return arg[len(arg)-1].text == marker
}

// trimSubscript drops one trailing `[...]` group. The marker inside
// `Base[Marker]` is a type argument and is left unmatched.
func trimSubscript(arg []token) []token {
	if len(arg) < 3 || !isOp(arg[len(arg)-1], "]") {
		return arg
	}
	depth := 0
	for i := len(arg) - 1; i > 0; i-- {
		switch {
		case isOp(arg[i], "]"):
			depth++
		case isOp(arg[i], "["):
			depth--
			if depth == 0 {
				return arg[:i]
			}
		}
	}
	return arg
}

func isOp(tok token, text string) bool {
	return tok.kind == tokOp && tok.text == text
}

func removeScene(scenes []Scene, name string) []Scene {
	out := scenes[:0]
	for _, scene := range scenes {
		if scene.Name != name {
			out = append(out, scene)
		}
	}
	return out
}

// String renders the scene as Name@line.
func (s Scene) String() string {
	return fmt.Sprintf("%s@%d", s.Name, s.Order)
}
