package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// AttributeSpec is used to define attributes on nodes or marks.
type AttributeSpec struct {
	// The default value for this attribute, to use when no explicit value is
	// provided.
	Default interface{} `json:"default,omitempty"`
	// Required attributes must be given explicitly when creating a node or a
	// mark of this type.
	Required bool `json:"required,omitempty"`
}

// NodeSpec is an object describing a node type.
type NodeSpec struct {
	// The name of the node type.
	Key string `json:"-"`
	// The content expression for this node, as described in the schema
	// guide. When not given, the node does not allow any content.
	Content string `json:"content,omitempty"`
	// The marks that are allowed inside of this node. May be a
	// space-separated string referring to mark names or groups, "_" to
	// explicitly allow all marks, or "" to disallow marks. When not given,
	// nodes with inline content default to allowing all marks, other nodes
	// default to not allowing marks.
	Marks *string `json:"marks,omitempty"`
	// The group or space-separated groups to which this node belongs, which
	// can be referred to in the content expressions for the schema.
	Group string `json:"group,omitempty"`
	// Should be set to true for inline nodes. (Implied for text nodes.)
	Inline bool `json:"inline,omitempty"`
	// The attributes that nodes of this type get.
	Attrs map[string]*AttributeSpec `json:"attrs,omitempty"`
	// Defines the default way a node of this type should be serialized to
	// DOM/HTML.
	ToDOM ToDOM `json:"-"`
	// Associates DOM parser information with this node, which can be used by
	// DOMParser to automatically derive a parser.
	ParseDOM []*ParseRule `json:"-"`
	// Defines the default way a node of this type should be serialized to a
	// string representation for debugging.
	ToDebugString func(*Node) string `json:"-"`
}

// MarkSpec is an object describing a mark type.
type MarkSpec struct {
	// The name of the mark type.
	Key string `json:"-"`
	// The attributes that marks of this type get.
	Attrs map[string]*AttributeSpec `json:"attrs,omitempty"`
	// Whether this mark should be active when the cursor is positioned at its
	// end (or at its start when that is also the start of the parent node).
	// Defaults to true.
	Inclusive *bool `json:"inclusive,omitempty"`
	// Determines which other marks this mark can coexist with. Should be a
	// space-separated strings naming other marks or groups of marks. When a
	// mark is added to a set, all marks that it excludes are removed in the
	// process. If the set contains any mark that excludes the new mark but is
	// not, itself, excluded by the new mark, the mark can not be added an the
	// set. You can use the value "_" to indicate that the mark excludes all
	// marks in the schema.
	//
	// Defaults to only being exclusive with marks of the same type.
	Excludes *string `json:"excludes,omitempty"`
	// The group or space-separated groups to which this mark belongs.
	Group string `json:"group,omitempty"`
	// Determines whether marks of this type can span multiple adjacent nodes
	// when serialized to DOM/HTML. Defaults to true.
	Spanning *bool `json:"spanning,omitempty"`
	// Defines the default way marks of this type should be serialized to
	// DOM/HTML.
	ToDOM ToDOM `json:"-"`
	// Associates DOM parser information with this mark.
	ParseDOM []*ParseRule `json:"-"`
}

// SchemaSpec is an object describing a schema, as passed to the Schema
// constructor.
type SchemaSpec struct {
	// The node types in this schema. Order is significant: it determines
	// which parse rules take precedence by default, and which nodes come
	// first in a given group.
	Nodes []*NodeSpec `json:"nodes"`
	// The mark types that exist in this schema. The order in which they are
	// provided determines the order in which mark sets are sorted.
	Marks []*MarkSpec `json:"marks,omitempty"`
	// The name of the default top-level node for the schema. Defaults to
	// "doc".
	TopNode string `json:"topNode,omitempty"`
}

// Schema holds the node and mark types that may occur in a document, and
// provides functionality for creating and deserializing such documents.
type Schema struct {
	// The spec on which the schema is based.
	Spec *SchemaSpec
	// An object mapping the schema's node names to node type objects.
	Nodes map[string]*NodeType
	// A map from mark names to mark type objects.
	Marks map[string]*MarkType
	// The type of the default top node for this schema.
	TopNodeType *NodeType
}

// NewSchema constructs a schema from a schema specification.
func NewSchema(spec *SchemaSpec) (*Schema, error) {
	schema := &Schema{Spec: spec}
	schema.Nodes = compileNodeTypes(spec.Nodes, schema)
	schema.Marks = compileMarkTypes(spec.Marks, schema)

	contentExprCache := map[string]*ContentMatch{}
	for _, typ := range schema.nodeList() {
		if _, ok := schema.Marks[typ.Name]; ok {
			return nil, fmt.Errorf("%s can not be both a node and a mark", typ.Name)
		}
		match, ok := contentExprCache[typ.Spec.Content]
		if !ok {
			var err error
			match, err = ParseContentMatch(typ.Spec.Content, schema.Nodes)
			if err != nil {
				return nil, err
			}
			contentExprCache[typ.Spec.Content] = match
		}
		typ.ContentMatch = match
		typ.InlineContent = match.inlineContent()
		var markExpr *string
		if typ.Spec.Marks != nil {
			markExpr = typ.Spec.Marks
		} else if !typ.InlineContent {
			empty := ""
			markExpr = &empty
		}
		if markExpr != nil {
			switch *markExpr {
			case "_":
				typ.MarkSet = nil
			case "":
				typ.MarkSet = []*MarkType{}
			default:
				set, err := gatherMarks(schema, strings.Fields(*markExpr))
				if err != nil {
					return nil, err
				}
				typ.MarkSet = set
			}
		}
	}
	for _, typ := range schema.markList() {
		excl := typ.Spec.Excludes
		if excl == nil {
			typ.excluded = []*MarkType{typ}
		} else if *excl == "" {
			typ.excluded = []*MarkType{}
		} else {
			set, err := gatherMarks(schema, strings.Fields(*excl))
			if err != nil {
				return nil, err
			}
			typ.excluded = set
		}
	}

	top := spec.TopNode
	if top == "" {
		top = "doc"
	}
	schema.TopNodeType = schema.Nodes[top]
	if schema.TopNodeType == nil {
		return nil, fmt.Errorf("schema is missing its top node type (%q)", top)
	}
	if _, ok := schema.Nodes["text"]; !ok {
		return nil, errors.New("every schema needs a 'text' type")
	}
	if len(schema.Nodes["text"].Spec.Attrs) > 0 {
		return nil, errors.New("the text node type should not have attributes")
	}
	return schema, nil
}

// Node creates a node in this schema. The type may be a string or a NodeType
// instance. The optional arguments are, in order, the attributes
// (map[string]interface{}), the content (anything FragmentFrom accepts), and
// the marks ([]*Mark).
func (s *Schema) Node(typ interface{}, args ...interface{}) (*Node, error) {
	var nodeType *NodeType
	switch t := typ.(type) {
	case string:
		nodeType = s.Nodes[t]
		if nodeType == nil {
			return nil, fmt.Errorf("unknown node type: %s", t)
		}
	case *NodeType:
		if t.Schema != s {
			return nil, fmt.Errorf("node type from different schema used (%s)", t.Name)
		}
		nodeType = t
	default:
		return nil, fmt.Errorf("invalid node type: %v", typ)
	}
	var attrs map[string]interface{}
	var content interface{}
	var marks []*Mark
	if len(args) > 0 {
		attrs, _ = args[0].(map[string]interface{})
	}
	if len(args) > 1 {
		content = args[1]
	}
	if len(args) > 2 {
		marks, _ = args[2].([]*Mark)
	}
	return nodeType.CreateChecked(attrs, content, marks)
}

// Text creates a text node in the schema. Empty text nodes are not allowed.
func (s *Schema) Text(text string, marks ...[]*Mark) *Node {
	typ := s.Nodes["text"]
	var set []*Mark
	if len(marks) > 0 {
		set = MarkSetFrom(marks[0])
	}
	return NewTextNode(typ, typ.DefaultAttrs, text, set)
}

// Mark creates a mark with the given type and attributes.
func (s *Schema) Mark(name string, attrs ...map[string]interface{}) *Mark {
	typ := s.Marks[name]
	if typ == nil {
		panic(fmt.Errorf("unknown mark type: %s", name))
	}
	var a map[string]interface{}
	if len(attrs) > 0 {
		a = attrs[0]
	}
	return typ.Create(a)
}

func (s *Schema) nodeList() []*NodeType {
	list := make([]*NodeType, 0, len(s.Nodes))
	for _, typ := range s.Nodes {
		list = append(list, typ)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Rank < list[j].Rank })
	return list
}

func (s *Schema) markList() []*MarkType {
	list := make([]*MarkType, 0, len(s.Marks))
	for _, typ := range s.Marks {
		list = append(list, typ)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Rank < list[j].Rank })
	return list
}

func gatherMarks(schema *Schema, marks []string) ([]*MarkType, error) {
	var found []*MarkType
	for _, name := range marks {
		if mark, ok := schema.Marks[name]; ok {
			found = append(found, mark)
			continue
		}
		ok := false
		for _, mark := range schema.markList() {
			if name == "_" || hasGroup(mark.Spec.Group, name) {
				found = append(found, mark)
				ok = true
			}
		}
		if !ok {
			return nil, fmt.Errorf("unknown mark type: '%s'", name)
		}
	}
	return found, nil
}

func hasGroup(groups, name string) bool {
	for _, g := range strings.Fields(groups) {
		if g == name {
			return true
		}
	}
	return false
}

// NodeType are objects allocated once per Schema and used to tag Node
// instances. They contain information about the node type, such as its name
// and what kind of node it represents.
type NodeType struct {
	// The name the node type has in this schema.
	Name string
	// A link back to the Schema the node type belongs to.
	Schema *Schema
	// The spec that this type is based on.
	Spec *NodeSpec
	// The groups of this node type, from its spec.
	Groups []string
	// The starting match of the node type's content expression.
	ContentMatch *ContentMatch
	// The set of marks allowed in this node. nil means all marks are
	// allowed.
	MarkSet []*MarkType
	// True if this node type has inline content.
	InlineContent bool
	// The attributes of a node of this type with every default filled in.
	DefaultAttrs map[string]interface{}
	// Position of the type in the schema spec.
	Rank int
}

func compileNodeTypes(specs []*NodeSpec, schema *Schema) map[string]*NodeType {
	result := make(map[string]*NodeType, len(specs))
	for i, spec := range specs {
		result[spec.Key] = &NodeType{
			Name:         spec.Key,
			Schema:       schema,
			Spec:         spec,
			Groups:       strings.Fields(spec.Group),
			DefaultAttrs: defaultAttrs(spec.Attrs),
			Rank:         i,
		}
	}
	return result
}

func defaultAttrs(attrs map[string]*AttributeSpec) map[string]interface{} {
	defaults := map[string]interface{}{}
	for name, attr := range attrs {
		if attr.Required {
			return nil
		}
		defaults[name] = attr.Default
	}
	return defaults
}

func computeAttrs(attrs map[string]*AttributeSpec, value map[string]interface{}) (map[string]interface{}, error) {
	built := map[string]interface{}{}
	for name, attr := range attrs {
		given, ok := value[name]
		if !ok {
			if attr.Required {
				return nil, fmt.Errorf("no value supplied for attribute %s", name)
			}
			given = attr.Default
		}
		built[name] = given
	}
	return built, nil
}

// IsBlock returns true if this is a block type.
func (nt *NodeType) IsBlock() bool {
	return !(nt.Spec.Inline || nt.Name == "text")
}

// IsInline returns true if this is an inline type.
func (nt *NodeType) IsInline() bool {
	return !nt.IsBlock()
}

// IsText returns true if this is the text node type.
func (nt *NodeType) IsText() bool {
	return nt.Name == "text"
}

// IsTextblock returns true if this is a block type with inline content.
func (nt *NodeType) IsTextblock() bool {
	return nt.IsBlock() && nt.InlineContent
}

// IsLeaf returns true for node types that allow no content.
func (nt *NodeType) IsLeaf() bool {
	return nt.ContentMatch == EmptyContentMatch
}

// HasRequiredAttrs tells you whether this node type has any required
// attributes.
func (nt *NodeType) HasRequiredAttrs() bool {
	for _, attr := range nt.Spec.Attrs {
		if attr.Required {
			return true
		}
	}
	return false
}

// ComputeAttrs fills the defaults in the given attributes.
func (nt *NodeType) ComputeAttrs(attrs map[string]interface{}) (map[string]interface{}, error) {
	if attrs == nil && nt.DefaultAttrs != nil {
		return nt.DefaultAttrs, nil
	}
	return computeAttrs(nt.Spec.Attrs, attrs)
}

// Create a Node of this type. The given attributes are checked and defaulted
// (you can pass nil to use the type's defaults entirely, if no required
// attributes exist). content may be a Fragment, a node, an array of nodes, or
// nil. Similarly marks may be nil to default to the empty set of marks.
func (nt *NodeType) Create(attrs map[string]interface{}, content interface{}, marks []*Mark) (*Node, error) {
	if nt.IsText() {
		return nil, errors.New("NodeType.Create can't construct text nodes")
	}
	computed, err := nt.ComputeAttrs(attrs)
	if err != nil {
		return nil, err
	}
	fragment, err := FragmentFrom(content)
	if err != nil {
		return nil, err
	}
	return NewNode(nt, computed, fragment, MarkSetFrom(marks)), nil
}

// CreateChecked is like Create, but checks the given content against the
// node type's content restrictions, and returns an error if it doesn't match.
func (nt *NodeType) CreateChecked(attrs map[string]interface{}, content interface{}, marks []*Mark) (*Node, error) {
	node, err := nt.Create(attrs, content, marks)
	if err != nil {
		return nil, err
	}
	if !nt.ValidContent(node.Content) {
		return nil, NewContentError("Invalid content for node %s", nt.Name)
	}
	return node, nil
}

// ValidContent returns true if the given fragment is valid content for this
// node type with the given attributes.
func (nt *NodeType) ValidContent(content *Fragment) bool {
	if !nt.ContentMatch.MatchFragment(content) {
		return false
	}
	for _, child := range content.Content {
		if !nt.AllowsMarks(child.Marks) {
			return false
		}
	}
	return true
}

// AllowsMarkType checks whether the given mark type is allowed in this node.
func (nt *NodeType) AllowsMarkType(markType *MarkType) bool {
	if nt.MarkSet == nil {
		return true
	}
	for _, mt := range nt.MarkSet {
		if mt == markType {
			return true
		}
	}
	return false
}

// AllowsMarks tests whether the given set of marks are allowed in this node.
func (nt *NodeType) AllowsMarks(marks []*Mark) bool {
	if nt.MarkSet == nil {
		return true
	}
	for _, mark := range marks {
		if !nt.AllowsMarkType(mark.Type) {
			return false
		}
	}
	return true
}

// AllowedMarks removes the marks that are not allowed in this node from the
// given set.
func (nt *NodeType) AllowedMarks(marks []*Mark) []*Mark {
	if nt.MarkSet == nil {
		return marks
	}
	var copied []*Mark
	for i, mark := range marks {
		if !nt.AllowsMarkType(mark.Type) {
			if copied == nil {
				copied = append([]*Mark{}, marks[:i]...)
			}
		} else if copied != nil {
			copied = append(copied, mark)
		}
	}
	if copied == nil {
		return marks
	}
	if len(copied) == 0 {
		return NoMarks
	}
	return copied
}

func (nt *NodeType) compatibleContent(other *NodeType) bool {
	return nt == other || nt.ContentMatch.compatible(other.ContentMatch)
}

func (nt *NodeType) isInGroup(name string) bool {
	for _, g := range nt.Groups {
		if g == name {
			return true
		}
	}
	return false
}

// MarkType is the type object for marks. Like nodes, marks (which are
// associated with nodes to signify things like emphasis or being part of a
// link) are tagged with type objects, which are instantiated once per Schema.
type MarkType struct {
	// The name of the mark type.
	Name string
	// The schema that this mark type instance is part of.
	Schema *Schema
	// The spec on which the type is based.
	Spec *MarkSpec
	// Position of the type in the schema spec, used to sort mark sets.
	Rank     int
	excluded []*MarkType
	instance *Mark
}

func compileMarkTypes(specs []*MarkSpec, schema *Schema) map[string]*MarkType {
	result := make(map[string]*MarkType, len(specs))
	for i, spec := range specs {
		typ := &MarkType{Name: spec.Key, Schema: schema, Spec: spec, Rank: i}
		defaults := defaultAttrs(spec.Attrs)
		if defaults != nil && len(defaults) == 0 {
			typ.instance = &Mark{Type: typ, Attrs: defaults}
		}
		result[spec.Key] = typ
	}
	return result
}

// Create a mark of this type. attrs may be nil or an object containing only
// some of the mark's attributes. The others, if they have defaults, will be
// added.
func (mt *MarkType) Create(attrs map[string]interface{}) *Mark {
	if attrs == nil && mt.instance != nil {
		return mt.instance
	}
	computed, err := computeAttrs(mt.Spec.Attrs, attrs)
	if err != nil {
		panic(err)
	}
	return &Mark{Type: mt, Attrs: computed}
}

// RemoveFromSet returns a new set of marks without the marks of this type.
func (mt *MarkType) RemoveFromSet(set []*Mark) []*Mark {
	var result []*Mark
	for _, mark := range set {
		if mark.Type != mt {
			result = append(result, mark)
		}
	}
	if len(result) == 0 {
		return NoMarks
	}
	return result
}

// IsInSet tests whether there is a mark of this type in the given set.
func (mt *MarkType) IsInSet(set []*Mark) *Mark {
	for _, mark := range set {
		if mark.Type == mt {
			return mark
		}
	}
	return nil
}

// Excludes queries whether a given mark type is excluded by this one.
func (mt *MarkType) Excludes(other *MarkType) bool {
	for _, ex := range mt.excluded {
		if ex == other {
			return true
		}
	}
	return false
}

// IsInclusive returns whether the mark stays active at its end.
func (mt *MarkType) IsInclusive() bool {
	return mt.Spec.Inclusive == nil || *mt.Spec.Inclusive
}
