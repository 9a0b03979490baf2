package plan

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"assistant/pkg/logx"
	"assistant/pkg/proto"
)

// DefaultTemplateID keys the fallback blueprint used for unknown intents.
const DefaultTemplateID = "DEFAULT"

// Template is a plan blueprint: the nodes and edges a fresh graph is
// instantiated from. Templates are immutable once registered; graphs
// built from them are independent copies.
type Template struct {
	ID    string  `yaml:"id" json:"id"`
	Nodes []*Node `yaml:"nodes" json:"nodes"`
	Edges []Edge  `yaml:"edges" json:"edges"`
}

// TemplateProvider resolves an intent to a plan blueprint. Implementations
// must fall back to a default blueprint for unknown intents rather than
// failing.
type TemplateProvider interface {
	Template(intent proto.Intent) *Template
}

// Library is an in-memory TemplateProvider seeded with the builtin
// blueprints. Registrations replace builtins with the same ID.
type Library struct {
	mu        sync.RWMutex
	templates map[string]*Template
	logger    *logx.Logger
}

// NewLibrary creates a template library containing the builtin blueprints.
func NewLibrary() *Library {
	l := &Library{
		templates: make(map[string]*Template),
		logger:    logx.NewLogger("plan"),
	}
	for _, t := range builtinTemplates() {
		l.templates[t.ID] = t
	}
	return l
}

// Template returns the blueprint for an intent, falling back to the
// default blueprint when the intent has no registered template.
func (l *Library) Template(intent proto.Intent) *Template {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if t, ok := l.templates[string(intent)]; ok {
		return t
	}
	return l.templates[DefaultTemplateID]
}

// Register adds or replaces a blueprint.
func (l *Library) Register(t *Template) error {
	if t == nil || t.ID == "" {
		return fmt.Errorf("register template: missing ID")
	}
	if err := validateTemplate(t); err != nil {
		return fmt.Errorf("register template %q: %w", t.ID, err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.templates[t.ID] = t
	return nil
}

// IDs returns the registered template IDs, sorted.
func (l *Library) IDs() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	ids := make([]string, 0, len(l.templates))
	for id := range l.templates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// LoadDir registers every *.yaml template file found in dir. Missing
// directories are not an error; a malformed file is.
func (l *Library) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read template dir %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".yaml" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read template %s: %w", path, err)
		}
		var t Template
		if err := yaml.Unmarshal(data, &t); err != nil {
			return fmt.Errorf("parse template %s: %w", path, err)
		}
		if err := l.Register(&t); err != nil {
			return err
		}
		l.logger.Info("loaded template %q from %s", t.ID, path)
	}
	return nil
}

func validateTemplate(t *Template) error {
	ids := make(map[string]bool, len(t.Nodes))
	for _, n := range t.Nodes {
		if n.ID == "" {
			return fmt.Errorf("node with empty ID")
		}
		if ids[n.ID] {
			return fmt.Errorf("node %q: %w", n.ID, ErrDuplicateNode)
		}
		if _, err := proto.ParseNodeKind(string(n.Kind)); err != nil {
			return fmt.Errorf("node %q: %w", n.ID, err)
		}
		ids[n.ID] = true
	}
	for _, e := range t.Edges {
		if !ids[e.From] || !ids[e.To] {
			return fmt.Errorf("edge %q -> %q: %w", e.From, e.To, ErrNodeNotFound)
		}
	}
	return nil
}

// NewFromTemplate instantiates a fresh graph from the provider's blueprint
// for the given intent. Node structs are copied so later graph mutation
// never touches the template. Blueprint violations of acyclicity or
// referential integrity are logged and tolerated.
func NewFromTemplate(provider TemplateProvider, intent proto.Intent) (*Graph, error) {
	t := provider.Template(intent)
	if t == nil {
		return nil, fmt.Errorf("no template for intent %q and no default registered", intent)
	}

	g := NewGraph(t.ID)
	for _, n := range t.Nodes {
		node := *n
		if node.Kind == proto.NodeKindAgent {
			if err := proto.ValidateAgentType(node.AgentType); err != nil {
				return nil, fmt.Errorf("template %q node %q: %w", t.ID, node.ID, err)
			}
		}
		if err := g.AddNode(&node); err != nil {
			return nil, fmt.Errorf("template %q: %w", t.ID, err)
		}
	}
	for _, e := range t.Edges {
		if err := g.AddEdge(e.From, e.To, e.Condition); err != nil {
			return nil, fmt.Errorf("template %q: %w", t.ID, err)
		}
	}

	if err := g.Validate(); err != nil {
		g.logger.Warn("template %q failed validation: %v; continuing with lazy ordering", t.ID, err)
	}
	return g, nil
}

func builtinTemplates() []*Template {
	return []*Template{
		buyTemplate(),
		orderTemplate(),
		recommendTemplate(),
		returnTemplate(),
		defaultTemplate(),
	}
}

func buyTemplate() *Template {
	return &Template{
		ID: string(proto.IntentBuy),
		Nodes: []*Node{
			{ID: "start", Kind: proto.NodeKindSystem, Description: "Entry point for buy flow"},
			{
				ID:              "gather_requirements",
				Kind:            proto.NodeKindClarification,
				RequiredInputs:  []string{"intent"},
				ProducedOutputs: []string{"category", "subcategory", "budget"},
				Description:     "Collect product requirements from user",
			},
			{
				ID:              "search_products",
				Kind:            proto.NodeKindAgent,
				AgentType:       proto.AgentTypeBuy,
				RequiredInputs:  []string{"category", "subcategory"},
				ProducedOutputs: []string{"product_options"},
				Description:     "Search for products matching criteria",
			},
			{
				ID:              "select_product",
				Kind:            proto.NodeKindClarification,
				RequiredInputs:  []string{"product_options"},
				ProducedOutputs: []string{"selected_product"},
				Description:     "User selects from product options",
			},
			{
				ID:              "confirm_purchase",
				Kind:            proto.NodeKindAgent,
				AgentType:       proto.AgentTypeBuy,
				RequiredInputs:  []string{"selected_product"},
				ProducedOutputs: []string{"purchase_confirmed"},
				Description:     "Confirm purchase details",
			},
			{ID: "end", Kind: proto.NodeKindTerminal, RequiredInputs: []string{"purchase_confirmed"}, Description: "End of buy flow"},
		},
		Edges: []Edge{
			{From: "start", To: "gather_requirements", Condition: proto.ConditionAlways},
			{From: "gather_requirements", To: "search_products", Condition: "has_requirements"},
			{From: "search_products", To: "select_product", Condition: "products_found"},
			{From: "select_product", To: "confirm_purchase", Condition: "product_selected"},
			{From: "confirm_purchase", To: "end", Condition: "purchase_confirmed"},
		},
	}
}

func orderTemplate() *Template {
	return &Template{
		ID: string(proto.IntentOrder),
		Nodes: []*Node{
			{ID: "start", Kind: proto.NodeKindSystem, Description: "Entry point for order flow"},
			{
				ID:              "get_order_id",
				Kind:            proto.NodeKindClarification,
				ProducedOutputs: []string{"order_id"},
				Description:     "Get order ID from user",
			},
			{
				ID:              "fetch_order",
				Kind:            proto.NodeKindAgent,
				AgentType:       proto.AgentTypeOrder,
				RequiredInputs:  []string{"order_id"},
				ProducedOutputs: []string{"order_details"},
				Description:     "Fetch order information",
			},
			{
				ID:              "display_status",
				Kind:            proto.NodeKindSystem,
				RequiredInputs:  []string{"order_details"},
				ProducedOutputs: []string{"status_displayed"},
				Description:     "Display order status to user",
			},
			{ID: "end", Kind: proto.NodeKindTerminal, RequiredInputs: []string{"status_displayed"}, Description: "End of order flow"},
		},
		Edges: []Edge{
			{From: "start", To: "get_order_id", Condition: proto.ConditionAlways},
			{From: "get_order_id", To: "fetch_order", Condition: "has_order_id"},
			{From: "fetch_order", To: "display_status", Condition: "order_found"},
			{From: "display_status", To: "end", Condition: proto.ConditionAlways},
		},
	}
}

func recommendTemplate() *Template {
	return &Template{
		ID: string(proto.IntentRecommend),
		Nodes: []*Node{
			{ID: "start", Kind: proto.NodeKindSystem, Description: "Entry point for recommendation flow"},
			{
				ID:              "understand_needs",
				Kind:            proto.NodeKindClarification,
				ProducedOutputs: []string{"category", "preferences"},
				Description:     "Understand user needs and preferences",
			},
			{
				ID:              "generate_recommendations",
				Kind:            proto.NodeKindAgent,
				AgentType:       proto.AgentTypeRecommend,
				RequiredInputs:  []string{"category", "preferences"},
				ProducedOutputs: []string{"recommendations"},
				Description:     "Generate product recommendations",
			},
			{
				ID:              "present_options",
				Kind:            proto.NodeKindSystem,
				RequiredInputs:  []string{"recommendations"},
				ProducedOutputs: []string{"options_presented"},
				Description:     "Present recommendations to user",
			},
			{ID: "end", Kind: proto.NodeKindTerminal, RequiredInputs: []string{"options_presented"}, Description: "End of recommendation flow"},
		},
		Edges: []Edge{
			{From: "start", To: "understand_needs", Condition: proto.ConditionAlways},
			{From: "understand_needs", To: "generate_recommendations", Condition: "needs_clear"},
			{From: "generate_recommendations", To: "present_options", Condition: "recommendations_ready"},
			{From: "present_options", To: "end", Condition: proto.ConditionAlways},
		},
	}
}

func returnTemplate() *Template {
	return &Template{
		ID: string(proto.IntentReturn),
		Nodes: []*Node{
			{ID: "start", Kind: proto.NodeKindSystem, Description: "Entry point for return flow"},
			{
				ID:              "get_return_details",
				Kind:            proto.NodeKindClarification,
				ProducedOutputs: []string{"order_id", "return_reason"},
				Description:     "Get order ID and return reason",
			},
			{
				ID:              "process_return",
				Kind:            proto.NodeKindAgent,
				AgentType:       proto.AgentTypeReturn,
				RequiredInputs:  []string{"order_id", "return_reason"},
				ProducedOutputs: []string{"return_processed"},
				Description:     "Process the return request",
			},
			{
				ID:              "confirm_return",
				Kind:            proto.NodeKindSystem,
				RequiredInputs:  []string{"return_processed"},
				ProducedOutputs: []string{"return_confirmed"},
				Description:     "Confirm return with user",
			},
			{ID: "end", Kind: proto.NodeKindTerminal, RequiredInputs: []string{"return_confirmed"}, Description: "End of return flow"},
		},
		Edges: []Edge{
			{From: "start", To: "get_return_details", Condition: proto.ConditionAlways},
			{From: "get_return_details", To: "process_return", Condition: "details_provided"},
			{From: "process_return", To: "confirm_return", Condition: "return_accepted"},
			{From: "confirm_return", To: "end", Condition: proto.ConditionAlways},
		},
	}
}

func defaultTemplate() *Template {
	return &Template{
		ID: DefaultTemplateID,
		Nodes: []*Node{
			{ID: "start", Kind: proto.NodeKindSystem, Description: "Entry point"},
			{
				ID:              "clarify_intent",
				Kind:            proto.NodeKindClarification,
				ProducedOutputs: []string{"intent"},
				Description:     "Clarify user intent",
			},
			{ID: "end", Kind: proto.NodeKindTerminal, RequiredInputs: []string{"intent"}, Description: "End after clarification"},
		},
		Edges: []Edge{
			{From: "start", To: "clarify_intent", Condition: proto.ConditionAlways},
			{From: "clarify_intent", To: "end", Condition: proto.ConditionAlways},
		},
	}
}
