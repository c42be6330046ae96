// Package ast defines the document tree produced by the parser and consumed
// by the renderers. Nodes form an intrusive doubly linked tree; structural
// mutators keep the invariants (a node has at most one parent, sibling links
// are symmetric) so callers can rearrange documents freely between parsing
// and rendering.
package ast

// NodeType identifies the kind of a Node.
type NodeType int

const (
	// Blocks.
	Document NodeType = iota
	FrontMatter
	BlockQuote
	List
	Item
	DescriptionList
	DescriptionItem
	DescriptionTerm
	DescriptionDetails
	CodeBlock
	HTMLBlock
	Paragraph
	Heading
	ThematicBreak
	FootnoteDefinition
	Table
	TableRow
	TableCell
	TaskItem

	// Inlines.
	Text
	SoftBreak
	LineBreak
	Code
	HTMLInline
	Emph
	Strong
	Strikethrough
	Superscript
	Link
	Image
	FootnoteReference
)

var nodeTypeNames = map[NodeType]string{
	Document:           "document",
	FrontMatter:        "front_matter",
	BlockQuote:         "block_quote",
	List:               "list",
	Item:               "item",
	DescriptionList:    "description_list",
	DescriptionItem:    "description_item",
	DescriptionTerm:    "description_term",
	DescriptionDetails: "description_details",
	CodeBlock:          "code_block",
	HTMLBlock:          "html_block",
	Paragraph:          "paragraph",
	Heading:            "heading",
	ThematicBreak:      "thematic_break",
	FootnoteDefinition: "footnote_definition",
	Table:              "table",
	TableRow:           "table_row",
	TableCell:          "table_cell",
	TaskItem:           "task_item",
	Text:               "text",
	SoftBreak:          "softbreak",
	LineBreak:          "linebreak",
	Code:               "code",
	HTMLInline:         "html_inline",
	Emph:               "emph",
	Strong:             "strong",
	Strikethrough:      "strikethrough",
	Superscript:        "superscript",
	Link:               "link",
	Image:              "image",
	FootnoteReference:  "footnote_reference",
}

// String returns the snake_case name of the node type.
func (t NodeType) String() string {
	if s, ok := nodeTypeNames[t]; ok {
		return s
	}
	return "unknown"
}

// IsInline reports whether t is an inline node type.
func (t NodeType) IsInline() bool {
	return t >= Text
}

// IsBlock reports whether t is a block node type.
func (t NodeType) IsBlock() bool {
	return t < Text
}

// ListType distinguishes bullet from ordered lists.
type ListType int

const (
	BulletList ListType = iota
	OrderedList
)

// ListDelimType is the marker delimiter of an ordered list.
type ListDelimType int

const (
	PeriodDelim ListDelimType = iota
	ParenDelim
)

// TableAlignment is the column alignment declared in a table's marker row.
type TableAlignment int

const (
	AlignNone TableAlignment = iota
	AlignLeft
	AlignCenter
	AlignRight
)

// SourcePos locates a node in the input, with 1-based lines and byte columns.
// The zero value means "unknown".
type SourcePos struct {
	StartLine   int
	StartColumn int
	EndLine     int
	EndColumn   int
}

// HeadingData describes a Heading node.
type HeadingData struct {
	Level  int
	Setext bool
}

// ListData describes a List or Item node. Items carry a copy of the data of
// the list they belong to, with per-item marker geometry.
type ListData struct {
	ListType     ListType
	MarkerOffset int
	Padding      int
	Start        int
	Delimiter    ListDelimType
	BulletChar   byte
	Tight        bool
	IsTaskList   bool
}

// CodeBlockData describes a CodeBlock node. Literal holds the block's text
// after finalization; Info is the unescaped info string of a fenced block.
type CodeBlockData struct {
	Fenced      bool
	FenceChar   byte
	FenceLength int
	FenceOffset int
	Info        string
	Literal     string
}

// HTMLBlockData describes an HTMLBlock node.
type HTMLBlockData struct {
	BlockType int
	Literal   string
}

// LinkData describes a Link or Image node.
type LinkData struct {
	URL   string
	Title string
}

// TableData describes a Table node.
type TableData struct {
	Alignments []TableAlignment
}

// FootnoteDefinitionData describes a FootnoteDefinition node. Name is the
// normalized label; TotalReferences counts references resolved to it.
type FootnoteDefinitionData struct {
	Name            string
	TotalReferences int
}

// FootnoteReferenceData describes a FootnoteReference node. Ix is the
// 1-based definition index in first-reference order; RefNum is the 1-based
// ordinal of this reference among those pointing at the same definition.
type FootnoteReferenceData struct {
	Name   string
	RefNum int
	Ix     int
}

// Node is a single element of the document tree.
type Node struct {
	Type NodeType

	parent     *Node
	firstChild *Node
	lastChild  *Node
	prev       *Node
	next       *Node

	// Literal is the text payload of Text, Code, HTMLInline, FrontMatter
	// and ThematicBreak nodes.
	Literal string

	SourcePos SourcePos

	Heading       HeadingData
	List          ListData
	CodeBlock     CodeBlockData
	HTMLBlock     HTMLBlockData
	Link          LinkData
	Table         TableData
	TableRow      struct{ Header bool }
	TaskItem      struct{ Symbol byte }
	FootnoteDef   FootnoteDefinitionData
	FootnoteRef   FootnoteReferenceData

	// Parser working state. Content accumulates raw block text until the
	// node is finalized; Open marks blocks still on the parse stack.
	Content        []byte
	Open           bool
	LastLineBlank  bool
	TableVisited   bool
	InternalOffset int
}

// NewNode returns an open node of the given type.
func NewNode(t NodeType) *Node {
	return &Node{Type: t, Open: true}
}

// Parent returns the node's parent, or nil at the root.
func (n *Node) Parent() *Node { return n.parent }

// FirstChild returns the node's first child, or nil.
func (n *Node) FirstChild() *Node { return n.firstChild }

// LastChild returns the node's last child, or nil.
func (n *Node) LastChild() *Node { return n.lastChild }

// Prev returns the previous sibling, or nil.
func (n *Node) Prev() *Node { return n.prev }

// Next returns the next sibling, or nil.
func (n *Node) Next() *Node { return n.next }

// Unlink detaches n from its parent and siblings. n keeps its children.
func (n *Node) Unlink() {
	if n.prev != nil {
		n.prev.next = n.next
	} else if n.parent != nil {
		n.parent.firstChild = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else if n.parent != nil {
		n.parent.lastChild = n.prev
	}
	n.parent = nil
	n.prev = nil
	n.next = nil
}

// AppendChild adds child as the last child of n, detaching it first.
func (n *Node) AppendChild(child *Node) {
	child.Unlink()
	child.parent = n
	if n.lastChild != nil {
		n.lastChild.next = child
		child.prev = n.lastChild
	} else {
		n.firstChild = child
	}
	n.lastChild = child
}

// PrependChild adds child as the first child of n, detaching it first.
func (n *Node) PrependChild(child *Node) {
	child.Unlink()
	child.parent = n
	if n.firstChild != nil {
		n.firstChild.prev = child
		child.next = n.firstChild
	} else {
		n.lastChild = child
	}
	n.firstChild = child
}

// InsertAfter places sibling immediately after n, detaching it first.
func (n *Node) InsertAfter(sibling *Node) {
	sibling.Unlink()
	sibling.parent = n.parent
	sibling.prev = n
	sibling.next = n.next
	if n.next != nil {
		n.next.prev = sibling
	} else if n.parent != nil {
		n.parent.lastChild = sibling
	}
	n.next = sibling
}

// InsertBefore places sibling immediately before n, detaching it first.
func (n *Node) InsertBefore(sibling *Node) {
	sibling.Unlink()
	sibling.parent = n.parent
	sibling.next = n
	sibling.prev = n.prev
	if n.prev != nil {
		n.prev.next = sibling
	} else if n.parent != nil {
		n.parent.firstChild = sibling
	}
	n.prev = sibling
}

// LastChildIsOpen reports whether the node's last child is still open.
func (n *Node) LastChildIsOpen() bool {
	return n.lastChild != nil && n.lastChild.Open
}

// CanContain reports whether a node of type child may be placed under n.
func (n *Node) CanContain(child NodeType) bool {
	switch n.Type {
	case Document, BlockQuote, FootnoteDefinition, DescriptionTerm,
		DescriptionDetails, Item, TaskItem:
		return child.IsBlock() && child != Item && child != TaskItem
	case List:
		return child == Item || child == TaskItem
	case DescriptionList:
		return child == DescriptionItem
	case DescriptionItem:
		return child == DescriptionTerm || child == DescriptionDetails
	case Table:
		return child == TableRow
	case TableRow:
		return child == TableCell
	case TableCell:
		switch child {
		case Text, Code, Emph, Strong, Link, Image, Strikethrough,
			Superscript, HTMLInline, FootnoteReference:
			return true
		}
		return false
	case Paragraph, Heading, Emph, Strong, Link, Image, Strikethrough,
		Superscript:
		return child.IsInline()
	}
	return false
}

// ContainsInlines reports whether the block's content is parsed as inlines.
func (n *Node) ContainsInlines() bool {
	switch n.Type {
	case Paragraph, Heading, TableCell:
		return true
	}
	return false
}

// EndsWithBlankLine reports whether the chain ending at n has a trailing
// blank line, looking through the last items of nested lists.
func (n *Node) EndsWithBlankLine() bool {
	for it := n; it != nil; it = it.lastChild {
		if it.LastLineBlank {
			return true
		}
		if it.Type != List && it.Type != Item && it.Type != TaskItem {
			return false
		}
	}
	return false
}
