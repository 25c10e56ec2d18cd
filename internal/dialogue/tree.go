package dialogue

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"diary-companion/internal/locale"
)

//go:embed tree.yaml
var defaultTreeYAML []byte

// NodeKind distingue como se comporta un nodo al ser elegido.
type NodeKind string

const (
	// KindMenu muestra su prompt y sus opciones; el motor entra en el nodo.
	KindMenu NodeKind = "menu"
	// KindResponse emite un contenido y se queda en el menu actual o vuelve a Idle.
	KindResponse NodeKind = "response"
	// KindInput pide texto libre para completar una accion.
	KindInput NodeKind = "input"
)

// Action es la operacion de dominio asociada a un nodo.
type Action string

const (
	ActionNone      Action = ""
	ActionAddGoal   Action = "add_goal"
	ActionTrackGoal Action = "track_goal"
	ActionListGoals Action = "list_goals"
)

// Destinos especiales de una opcion.
const (
	TargetBack = "@back"
	TargetMain = "@main"
)

var ErrInvalidTree = errors.New("invalid dialogue tree")

// Choice es una opcion visible dentro de un nodo.
type Choice struct {
	ID       string
	Target   string
	LabelKey string
}

// Node es un vertice del arbol guiado. Parent apunta al menu que lo
// referencia primero, lo que permite volver atras a cualquier profundidad.
type Node struct {
	ID           string
	Kind         NodeKind
	Parent       string
	Choices      []Choice
	Action       Action
	Pooled       bool
	ReturnToIdle bool
}

func (n *Node) PromptKey() string { return "tree." + n.ID + ".prompt" }
func (n *Node) TextKey() string   { return "tree." + n.ID + ".text" }
func (n *Node) PoolKey() string   { return "tree." + n.ID + ".pool" }
func (n *Node) LabelKey() string  { return "tree." + n.ID + ".label" }

// Choice busca una opcion por id dentro del nodo.
func (n *Node) Choice(id string) (Choice, bool) {
	for _, c := range n.Choices {
		if c.ID == id {
			return c, true
		}
	}
	return Choice{}, false
}

// Tree es el grafo de dialogo guiado, inmutable tras cargarse.
type Tree struct {
	root  string
	nodes map[string]*Node
	order []string
}

func (t *Tree) Root() *Node {
	return t.nodes[t.root]
}

func (t *Tree) Node(id string) (*Node, bool) {
	n, ok := t.nodes[id]
	return n, ok
}

// NodeIDs devuelve los ids en el orden de definicion.
func (t *Tree) NodeIDs() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

type treeSpec struct {
	Root  string     `yaml:"root"`
	Nodes []nodeSpec `yaml:"nodes"`
}

type nodeSpec struct {
	ID      string       `yaml:"id"`
	Kind    string       `yaml:"kind"`
	Content string       `yaml:"content"`
	Then    string       `yaml:"then"`
	Action  string       `yaml:"action"`
	Choices []choiceSpec `yaml:"choices"`
}

type choiceSpec struct {
	ID     string `yaml:"id"`
	Target string `yaml:"target"`
	Label  string `yaml:"label"`
}

// UnmarshalYAML acepta una opcion como id de nodo o como mapa completo.
func (c *choiceSpec) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		c.Target = value.Value
		return nil
	}
	type plain choiceSpec
	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}
	*c = choiceSpec(p)
	return nil
}

// DefaultTree carga el arbol embebido y lo valida contra loc.
func DefaultTree(loc locale.Provider) (*Tree, error) {
	return LoadTree(bytes.NewReader(defaultTreeYAML), loc)
}

// LoadTree decodifica y valida un arbol. Cada clave de texto que el arbol
// necesita debe existir en todos los idiomas de loc.
func LoadTree(r io.Reader, loc locale.Provider) (*Tree, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var spec treeSpec
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrInvalidTree, err)
	}
	tree, err := buildTree(spec)
	if err != nil {
		return nil, err
	}
	if loc != nil {
		if err := tree.checkKeys(loc); err != nil {
			return nil, err
		}
	}
	return tree, nil
}

func buildTree(spec treeSpec) (*Tree, error) {
	t := &Tree{root: spec.Root, nodes: make(map[string]*Node, len(spec.Nodes))}
	for _, ns := range spec.Nodes {
		id := strings.TrimSpace(ns.ID)
		if id == "" || strings.HasPrefix(id, "@") {
			return nil, fmt.Errorf("%w: invalid node id %q", ErrInvalidTree, ns.ID)
		}
		if _, dup := t.nodes[id]; dup {
			return nil, fmt.Errorf("%w: duplicate node %q", ErrInvalidTree, id)
		}
		node, err := newNode(id, ns)
		if err != nil {
			return nil, err
		}
		t.nodes[id] = node
		t.order = append(t.order, id)
	}

	root, ok := t.nodes[t.root]
	if !ok {
		return nil, fmt.Errorf("%w: root %q not defined", ErrInvalidTree, t.root)
	}
	if root.Kind != KindMenu {
		return nil, fmt.Errorf("%w: root %q must be a menu", ErrInvalidTree, t.root)
	}

	for _, id := range t.order {
		node := t.nodes[id]
		for _, c := range node.Choices {
			if isSentinel(c.Target) {
				continue
			}
			target, ok := t.nodes[c.Target]
			if !ok {
				return nil, fmt.Errorf("%w: node %q points to unknown %q", ErrInvalidTree, id, c.Target)
			}
			if target.Parent == "" && target.ID != t.root {
				target.Parent = id
			}
		}
	}
	for _, id := range t.order {
		if n := t.nodes[id]; n.Parent == "" && id != t.root {
			return nil, fmt.Errorf("%w: node %q is unreachable", ErrInvalidTree, id)
		}
	}
	return t, nil
}

func newNode(id string, ns nodeSpec) (*Node, error) {
	node := &Node{ID: id, Kind: NodeKind(ns.Kind), Action: Action(ns.Action)}
	switch node.Kind {
	case KindMenu:
		if len(ns.Choices) == 0 {
			return nil, fmt.Errorf("%w: menu %q has no choices", ErrInvalidTree, id)
		}
	case KindResponse:
		if len(ns.Choices) > 0 {
			return nil, fmt.Errorf("%w: response %q cannot have choices", ErrInvalidTree, id)
		}
	case KindInput:
	default:
		return nil, fmt.Errorf("%w: node %q has unknown kind %q", ErrInvalidTree, id, ns.Kind)
	}

	switch ns.Content {
	case "", "static":
	case "pool":
		node.Pooled = true
	default:
		return nil, fmt.Errorf("%w: node %q has unknown content %q", ErrInvalidTree, id, ns.Content)
	}
	switch ns.Then {
	case "", "stay":
	case "idle":
		node.ReturnToIdle = true
	default:
		return nil, fmt.Errorf("%w: node %q has unknown then %q", ErrInvalidTree, id, ns.Then)
	}
	switch node.Action {
	case ActionNone:
	case ActionAddGoal, ActionTrackGoal:
		if node.Kind != KindInput {
			return nil, fmt.Errorf("%w: action %q needs an input node (%q)", ErrInvalidTree, node.Action, id)
		}
	case ActionListGoals:
		if node.Kind != KindResponse {
			return nil, fmt.Errorf("%w: action %q needs a response node (%q)", ErrInvalidTree, node.Action, id)
		}
	default:
		return nil, fmt.Errorf("%w: node %q has unknown action %q", ErrInvalidTree, id, ns.Action)
	}
	if node.Kind == KindInput && node.Action == ActionNone {
		return nil, fmt.Errorf("%w: input %q needs an action", ErrInvalidTree, id)
	}

	seen := make(map[string]bool, len(ns.Choices))
	for _, cs := range ns.Choices {
		c := Choice{ID: cs.ID, Target: strings.TrimSpace(cs.Target), LabelKey: cs.Label}
		if c.Target == "" {
			return nil, fmt.Errorf("%w: node %q has a choice without target", ErrInvalidTree, id)
		}
		if isSentinel(c.Target) && c.Target != TargetBack && c.Target != TargetMain {
			return nil, fmt.Errorf("%w: node %q uses unknown sentinel %q", ErrInvalidTree, id, c.Target)
		}
		if c.ID == "" {
			c.ID = defaultChoiceID(c.Target)
		}
		if c.LabelKey == "" {
			c.LabelKey = defaultLabelKey(c.Target)
		}
		if seen[c.ID] {
			return nil, fmt.Errorf("%w: node %q repeats choice %q", ErrInvalidTree, id, c.ID)
		}
		seen[c.ID] = true
		node.Choices = append(node.Choices, c)
	}
	return node, nil
}

func (t *Tree) checkKeys(loc locale.Provider) error {
	var errs []error
	for _, lang := range loc.Languages() {
		require := func(key string) {
			if !loc.Has(lang, key) {
				errs = append(errs, fmt.Errorf("%w: %s: missing key %q", ErrInvalidTree, lang, key))
			}
		}
		for _, id := range t.order {
			n := t.nodes[id]
			switch n.Kind {
			case KindMenu, KindInput:
				require(n.PromptKey())
			case KindResponse:
				if n.Action == ActionNone {
					if n.Pooled {
						require(n.PoolKey())
					} else {
						require(n.TextKey())
					}
				}
			}
			for _, c := range n.Choices {
				require(c.LabelKey)
			}
		}
	}
	return errors.Join(errs...)
}

func isSentinel(target string) bool {
	return strings.HasPrefix(target, "@")
}

func defaultChoiceID(target string) string {
	if isSentinel(target) {
		return strings.TrimPrefix(target, "@")
	}
	if i := strings.LastIndex(target, "."); i >= 0 {
		return target[i+1:]
	}
	return target
}

func defaultLabelKey(target string) string {
	switch target {
	case TargetBack:
		return "common.back"
	case TargetMain:
		return "common.main_menu"
	}
	return "tree." + target + ".label"
}
