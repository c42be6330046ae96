package parser

import (
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/commonmark/ast"
)

func mustParse(t *testing.T, src string, opts *Options) *ast.Node {
	t.Helper()
	doc, err := Parse([]byte(src), opts)
	require.NoError(t, err)
	require.NotNil(t, doc)
	require.Equal(t, ast.Document, doc.Type)
	return doc
}

func childTypes(n *ast.Node) []ast.NodeType {
	var types []ast.NodeType
	for c := n.FirstChild(); c != nil; c = c.Next() {
		types = append(types, c.Type)
	}
	return types
}

func TestParse_EmptyInput_ReturnsEmptyDocument(t *testing.T) {
	doc := mustParse(t, "", nil)
	require.Nil(t, doc.FirstChild())
}

func TestParse_NegativeWidth_ReturnsError(t *testing.T) {
	opts := &Options{}
	opts.Render.Width = -1
	_, err := Parse([]byte("x"), opts)
	require.Error(t, err)
}

func TestParse_ATXHeading_SetsLevel(t *testing.T) {
	doc := mustParse(t, "### Section\n", nil)

	h := doc.FirstChild()
	require.Equal(t, ast.Heading, h.Type)
	require.Equal(t, 3, h.Heading.Level)
	require.False(t, h.Heading.Setext)
	require.Equal(t, "Section", h.FirstChild().Literal)
}

func TestParse_SetextHeadings_SetLevels(t *testing.T) {
	doc := mustParse(t, "Title\n=====\n\nSub\n---\n", nil)

	h1 := doc.FirstChild()
	require.Equal(t, ast.Heading, h1.Type)
	require.Equal(t, 1, h1.Heading.Level)
	require.True(t, h1.Heading.Setext)

	h2 := h1.Next()
	require.Equal(t, ast.Heading, h2.Type)
	require.Equal(t, 2, h2.Heading.Level)
}

func TestParse_SevenHashes_IsParagraph(t *testing.T) {
	doc := mustParse(t, "####### nope\n", nil)
	require.Equal(t, ast.Paragraph, doc.FirstChild().Type)
}

func TestParse_BlankLineSeparatesParagraphs(t *testing.T) {
	doc := mustParse(t, "one\n\ntwo\n", nil)
	require.Equal(t, []ast.NodeType{ast.Paragraph, ast.Paragraph}, childTypes(doc))
}

func TestParse_ThematicBreakVariants(t *testing.T) {
	doc := mustParse(t, "***\n\n- - -\n\n___\n", nil)
	require.Equal(t, []ast.NodeType{
		ast.ThematicBreak, ast.ThematicBreak, ast.ThematicBreak,
	}, childTypes(doc))
}

func TestParse_FencedCodeBlock_CapturesInfoAndLiteral(t *testing.T) {
	doc := mustParse(t, "```go\nfmt.Println()\n```\n", nil)

	cb := doc.FirstChild()
	require.Equal(t, ast.CodeBlock, cb.Type)
	require.True(t, cb.CodeBlock.Fenced)
	require.Equal(t, "go", cb.CodeBlock.Info)
	require.Equal(t, "fmt.Println()\n", cb.CodeBlock.Literal)
}

func TestParse_UnclosedFence_RunsToEndOfInput(t *testing.T) {
	doc := mustParse(t, "```\ncode\n", nil)

	cb := doc.FirstChild()
	require.Equal(t, ast.CodeBlock, cb.Type)
	require.Equal(t, "code\n", cb.CodeBlock.Literal)
}

func TestParse_IndentedCodeBlock(t *testing.T) {
	doc := mustParse(t, "    indented\n", nil)

	cb := doc.FirstChild()
	require.Equal(t, ast.CodeBlock, cb.Type)
	require.False(t, cb.CodeBlock.Fenced)
	require.Equal(t, "indented\n", cb.CodeBlock.Literal)
}

func TestParse_DefaultInfoString_AppliesWhenMissing(t *testing.T) {
	info := "text"
	opts := &Options{}
	opts.Parse.DefaultInfoString = &info
	doc := mustParse(t, "```\nx\n```\n", opts)

	require.Equal(t, "text", doc.FirstChild().CodeBlock.Info)
}

func TestParse_BlockQuote_LazyContinuation(t *testing.T) {
	doc := mustParse(t, "> quoted\nstill quoted\n", nil)

	bq := doc.FirstChild()
	require.Equal(t, ast.BlockQuote, bq.Type)
	require.Nil(t, bq.Next())
	require.Equal(t, ast.Paragraph, bq.FirstChild().Type)
}

func TestParse_BulletList_TightWithTwoItems(t *testing.T) {
	doc := mustParse(t, "- a\n- b\n", nil)

	list := doc.FirstChild()
	require.Equal(t, ast.List, list.Type)
	require.Equal(t, ast.BulletList, list.List.ListType)
	require.True(t, list.List.Tight)
	require.Equal(t, []ast.NodeType{ast.Item, ast.Item}, childTypes(list))
}

func TestParse_BlankLineBetweenItems_MakesListLoose(t *testing.T) {
	doc := mustParse(t, "- a\n\n- b\n", nil)
	require.False(t, doc.FirstChild().List.Tight)
}

func TestParse_OrderedList_StartAndDelimiter(t *testing.T) {
	doc := mustParse(t, "3) three\n4) four\n", nil)

	list := doc.FirstChild()
	require.Equal(t, ast.OrderedList, list.List.ListType)
	require.Equal(t, 3, list.List.Start)
	require.Equal(t, ast.ParenDelim, list.List.Delimiter)
}

func TestParse_ChangedBulletChar_StartsNewList(t *testing.T) {
	doc := mustParse(t, "- a\n+ b\n", nil)
	require.Equal(t, []ast.NodeType{ast.List, ast.List}, childTypes(doc))
}

func TestParse_NestedList(t *testing.T) {
	doc := mustParse(t, "- a\n  - b\n", nil)

	item := doc.FirstChild().FirstChild()
	require.Equal(t, []ast.NodeType{ast.Paragraph, ast.List}, childTypes(item))
}

func TestParse_ReferenceDefinition_ConsumedAndResolved(t *testing.T) {
	doc := mustParse(t, "[foo]: /url \"a title\"\n\nsee [foo]\n", nil)

	require.Equal(t, []ast.NodeType{ast.Paragraph}, childTypes(doc))
	link := doc.FirstChild().FirstChild().Next()
	require.Equal(t, ast.Link, link.Type)
	require.Equal(t, "/url", link.Link.URL)
	require.Equal(t, "a title", link.Link.Title)
}

func TestParse_ReferenceDefinition_FirstDefinitionWins(t *testing.T) {
	doc := mustParse(t, "[foo]: /first\n[foo]: /second\n\n[foo]\n", nil)

	link := doc.FirstChild().FirstChild()
	require.Equal(t, ast.Link, link.Type)
	require.Equal(t, "/first", link.Link.URL)
}

func TestParse_ReferenceLabel_CaseFoldedLookup(t *testing.T) {
	doc := mustParse(t, "[SS]: /url\n\n[ß]\n", nil)
	require.Equal(t, ast.Link, doc.FirstChild().FirstChild().Type)
}

func TestParse_HTMLBlock_CapturedVerbatim(t *testing.T) {
	doc := mustParse(t, "<div>\nraw\n</div>\n", nil)

	hb := doc.FirstChild()
	require.Equal(t, ast.HTMLBlock, hb.Type)
	require.Contains(t, hb.HTMLBlock.Literal, "<div>")
	require.Contains(t, hb.HTMLBlock.Literal, "raw")
}

func TestParse_FrontMatter_SplitsLiteralFromBody(t *testing.T) {
	delim := "---"
	opts := &Options{}
	opts.Extension.FrontMatterDelimiter = &delim
	doc := mustParse(t, "---\ntitle: x\n---\n\nbody\n", opts)

	fm := doc.FirstChild()
	require.Equal(t, ast.FrontMatter, fm.Type)
	require.Equal(t, "---\ntitle: x\n---\n\n", fm.Literal)
	require.Equal(t, ast.Paragraph, fm.Next().Type)
}

func TestParse_FrontMatter_DisabledDelimiterStaysThematicBreak(t *testing.T) {
	doc := mustParse(t, "---\ntitle: x\n---\n", nil)
	require.Equal(t, ast.ThematicBreak, doc.FirstChild().Type)
}

func TestParse_Tasklist_MarksItemsAndSymbol(t *testing.T) {
	opts := &Options{}
	opts.Extension.Tasklist = true
	doc := mustParse(t, "- [x] done\n- [ ] todo\n", opts)

	list := doc.FirstChild()
	require.True(t, list.List.IsTaskList)
	done := list.FirstChild()
	require.Equal(t, ast.TaskItem, done.Type)
	require.Equal(t, byte('x'), done.TaskItem.Symbol)
	todo := done.Next()
	require.Equal(t, ast.TaskItem, todo.Type)
	require.Equal(t, byte(0), todo.TaskItem.Symbol)
}

func TestParse_Tasklist_Disabled_KeepsLiteralText(t *testing.T) {
	doc := mustParse(t, "- [x] done\n", nil)

	item := doc.FirstChild().FirstChild()
	require.Equal(t, ast.Item, item.Type)
	text := item.FirstChild().FirstChild()
	require.Equal(t, "[x] done", text.Literal)
}

func TestParse_Footnotes_OrdinalsFollowFirstReference(t *testing.T) {
	opts := &Options{}
	opts.Extension.Footnotes = true
	src := "uses [^b] then [^a]\n\n[^a]: first defined\n[^b]: second defined\n"
	doc := mustParse(t, src, opts)

	para := doc.FirstChild()
	refB := para.FirstChild().Next()
	require.Equal(t, ast.FootnoteReference, refB.Type)
	require.Equal(t, 1, refB.FootnoteRef.Ix)
	refA := refB.Next().Next()
	require.Equal(t, ast.FootnoteReference, refA.Type)
	require.Equal(t, 2, refA.FootnoteRef.Ix)

	defs := childTypes(doc)
	require.Equal(t, []ast.NodeType{
		ast.Paragraph, ast.FootnoteDefinition, ast.FootnoteDefinition,
	}, defs)
	require.Equal(t, "b", para.Next().FootnoteDef.Name)
}

func TestParse_Footnotes_UnreferencedDefinitionDropped(t *testing.T) {
	opts := &Options{}
	opts.Extension.Footnotes = true
	doc := mustParse(t, "no references here\n\n[^ghost]: boo\n", opts)

	require.Equal(t, []ast.NodeType{ast.Paragraph}, childTypes(doc))
}

func TestParse_Footnotes_UndefinedReferenceBecomesText(t *testing.T) {
	opts := &Options{}
	opts.Extension.Footnotes = true
	doc := mustParse(t, "see [^missing]\n", opts)

	for c := doc.FirstChild().FirstChild(); c != nil; c = c.Next() {
		require.Equal(t, ast.Text, c.Type)
	}
}

func TestParse_DescriptionList_TermAndDetails(t *testing.T) {
	opts := &Options{}
	opts.Extension.DescriptionLists = true
	doc := mustParse(t, "Term\n: definition\n", opts)

	dl := doc.FirstChild()
	require.Equal(t, ast.DescriptionList, dl.Type)
	item := dl.FirstChild()
	require.Equal(t, ast.DescriptionItem, item.Type)
	require.Equal(t, []ast.NodeType{
		ast.DescriptionTerm, ast.DescriptionDetails,
	}, childTypes(item))
}

func TestParse_Table_HeaderAlignmentsAndRows(t *testing.T) {
	opts := &Options{}
	opts.Extension.Table = true
	src := "| a | b | c |\n| :-- | :-: | --: |\n| 1 | 2 | 3 |\n"
	doc := mustParse(t, src, opts)

	table := doc.FirstChild()
	require.Equal(t, ast.Table, table.Type)
	require.Equal(t, []ast.TableAlignment{
		ast.AlignLeft, ast.AlignCenter, ast.AlignRight,
	}, table.Table.Alignments)

	header := table.FirstChild()
	require.True(t, header.TableRow.Header)
	require.Equal(t, 3, len(childTypes(header)))
	body := header.Next()
	require.False(t, body.TableRow.Header)
}

func TestParse_Table_WithoutSeparatorRow_IsParagraph(t *testing.T) {
	opts := &Options{}
	opts.Extension.Table = true
	doc := mustParse(t, "| a | b |\njust text\n", opts)
	require.Equal(t, ast.Paragraph, doc.FirstChild().Type)
}

func TestParse_SourcePos_TracksHeadingLine(t *testing.T) {
	doc := mustParse(t, "one\n\n## two\n", nil)

	h := doc.FirstChild().Next()
	require.Equal(t, 3, h.SourcePos.StartLine)
}
