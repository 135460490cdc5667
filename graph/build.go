package graph

import (
	"fmt"
	"sort"

	"github.com/flowmesh/agentgraph/graph/errs"
)

// NodeFactory instantiates a concrete Node from its spec id and
// type-specific data map. Concrete node types live in package nodes and
// register themselves via Register during their package init, keeping
// graph free of a direct dependency on any built-in node implementation.
type NodeFactory func(id string, data map[string]any) (Node, error)

var registry = make(map[string]NodeFactory)

// Register adds a factory for the given spec type tag. Re-registering a
// tag replaces the previous factory; this lets tests install fakes.
func Register(typeTag string, factory NodeFactory) {
	registry[typeTag] = factory
}

// innerHost is implemented by the nodes package's inner-type node. The
// compiler recurses into magic_flow and hands the resulting sub-graph
// back through this interface rather than the nodes package threading a
// compile callback down into its own factory.
type innerHost interface {
	AttachSubgraph(g *Graph)
}

// entrySeeder is implemented by nodes that need the initial user message
// and attachments injected into their configuration at build time: the
// master user_input node, and any chat-type node (§4.1 operation 3).
type entrySeeder interface {
	SeedMessage(message string, attachments, images []Attachment)
}

var sinkCounter int

func freshSinkID() string {
	sinkCounter++
	return fmt.Sprintf("__sink_%d", sinkCounter)
}

// Compile runs the full build pipeline (§4.1): sort, sink injection,
// input seeding, instantiation, nested-graph recursion, and validation.
// Validation failures never abort compilation — they are recorded as
// Findings on the returned Graph and surfaced by the executor as debug
// events at graph_start. A nil spec, a node factory error, or a failing
// nested compile is returned as an error instead.
func Compile(spec *Spec, message string, attachments, images []Attachment) (*Graph, error) {
	if spec == nil {
		return nil, &errs.SpecError{Message: "spec is nil"}
	}

	nodeSpecs := sortNodes(spec.Nodes)
	edgeSpecs := sortEdges(spec.Edges, nodeSpecs)

	sinkID := freshSinkID()
	edgeSpecs = rewriteVoidEdges(edgeSpecs, sinkID)

	g := &Graph{
		ID:          fmt.Sprintf("graph:%s", spec.Type),
		Nodes:       make(map[string]Node),
		Debug:       spec.Debug,
		DebugConfig: spec.DebugConfig,
		SinkID:      sinkID,
	}

	for _, ns := range nodeSpecs {
		n, err := instantiate(ns)
		if err != nil {
			return nil, fmt.Errorf("build node %q: %w", ns.ID, err)
		}
		g.Nodes[ns.ID] = n
		g.Order = append(g.Order, ns.ID)
	}
	g.Nodes[sinkID] = newSinkNode(sinkID)
	g.Order = append(g.Order, sinkID)

	for _, es := range edgeSpecs {
		g.Edges = append(g.Edges, &Edge{
			Source:     es.Source,
			SourceType: es.SourceHandle,
			Target:     es.Target,
			TargetKey:  es.TargetHandle,
		})
	}

	seedEntryInputs(g, message, attachments, images)

	if spec.Master != "" {
		g.Master = spec.Master
	} else {
		g.Master = findMaster(g)
	}

	for _, ns := range nodeSpecs {
		if ns.Type != "inner" || ns.MagicFlow == nil {
			continue
		}
		n, ok := g.Nodes[ns.ID]
		if !ok {
			continue
		}
		host, ok := n.(innerHost)
		if !ok {
			continue
		}
		sub, err := Compile(ns.MagicFlow, message, attachments, images)
		if err != nil {
			return nil, fmt.Errorf("build nested graph for inner node %q: %w", ns.ID, err)
		}
		sub.Host = &HostRef{NodeID: ns.ID, Graph: g}
		host.AttachSubgraph(sub)
	}

	g.Findings = validate(g)

	return g, nil
}

// instantiate dispatches on the spec's type tag to the registered
// factory. Unknown types yield a stub node (§4.1 operation 4) rather
// than failing the build.
func instantiate(ns NodeSpec) (Node, error) {
	factory, ok := registry[ns.Type]
	if !ok {
		return newStubNode(ns.ID, ns.Type), nil
	}
	return factory(ns.ID, ns.Data)
}

// sortNodes stable-sorts so the user_input entry node is first (§4.1
// operation 1). This is a debuggability convenience; nothing downstream
// depends on node order for correctness.
func sortNodes(nodes []NodeSpec) []NodeSpec {
	out := make([]NodeSpec, len(nodes))
	copy(out, nodes)
	sort.SliceStable(out, func(i, j int) bool {
		iEntry := out[i].Type == "user_input"
		jEntry := out[j].Type == "user_input"
		return iEntry && !jEntry
	})
	return out
}

// sortEdges stable-sorts edges so those originating from earlier nodes
// (per the now-sorted node order) appear first.
func sortEdges(edges []EdgeSpec, nodes []NodeSpec) []EdgeSpec {
	position := make(map[string]int, len(nodes))
	for i, n := range nodes {
		position[n.ID] = i
	}
	out := make([]EdgeSpec, len(edges))
	copy(out, edges)
	sort.SliceStable(out, func(i, j int) bool {
		return position[out[i].Source] < position[out[j].Source]
	})
	return out
}

// rewriteVoidEdges points every edge with an absent TargetHandle at the
// sink node under ReservedVoidKey (§4.1 operation 2, §3's Edge
// definition).
func rewriteVoidEdges(edges []EdgeSpec, sinkID string) []EdgeSpec {
	out := make([]EdgeSpec, len(edges))
	for i, e := range edges {
		if e.TargetHandle == "" {
			e.Target = sinkID
			e.TargetHandle = ReservedVoidKey
		}
		out[i] = e
	}
	return out
}

// seedEntryInputs injects the initial user message and attachments into
// the master user_input node's configuration, and into every chat-type
// node's current turn (§4.1 operation 3).
func seedEntryInputs(g *Graph, message string, attachments, images []Attachment) {
	for _, id := range g.Order {
		n, ok := g.node(id)
		if !ok {
			continue
		}
		seeder, ok := n.(entrySeeder)
		if !ok {
			continue
		}
		if n.Type() == "user_input" || n.Type() == "chat" {
			seeder.SeedMessage(message, attachments, images)
		}
	}
}

// findMaster locates the sole user_input node when the spec did not
// name one explicitly.
func findMaster(g *Graph) string {
	for _, id := range g.Order {
		if n, ok := g.node(id); ok && n.Type() == "user_input" {
			return id
		}
	}
	return ""
}
