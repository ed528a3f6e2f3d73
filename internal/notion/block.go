package notion

import "strings"

// RichText is one styled run of text. Only the plain rendering is kept.
type RichText struct {
	PlainText string `json:"plain_text"`
}

type textBlock struct {
	RichText []RichText `json:"rich_text"`
}

// Block is a single node of a page's block tree. Only the block types the
// traversal reads carry a body.
type Block struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	HasChildren bool   `json:"has_children"`

	Heading1         *textBlock `json:"heading_1,omitempty"`
	Heading2         *textBlock `json:"heading_2,omitempty"`
	Heading3         *textBlock `json:"heading_3,omitempty"`
	Toggle           *textBlock `json:"toggle,omitempty"`
	Paragraph        *textBlock `json:"paragraph,omitempty"`
	BulletedListItem *textBlock `json:"bulleted_list_item,omitempty"`
}

// Block types the traversal understands.
const (
	TypeHeading1         = "heading_1"
	TypeHeading2         = "heading_2"
	TypeHeading3         = "heading_3"
	TypeToggle           = "toggle"
	TypeParagraph        = "paragraph"
	TypeBulletedListItem = "bulleted_list_item"
	TypeColumnList       = "column_list"
	TypeColumn           = "column"
	TypeSyncedBlock      = "synced_block"
	TypeTemplate         = "template"
)

// Text joins every rich-text run of the block's body, or "" for types
// without text.
func (b Block) Text() string {
	var body *textBlock
	switch b.Type {
	case TypeHeading1:
		body = b.Heading1
	case TypeHeading2:
		body = b.Heading2
	case TypeHeading3:
		body = b.Heading3
	case TypeToggle:
		body = b.Toggle
	case TypeParagraph:
		body = b.Paragraph
	case TypeBulletedListItem:
		body = b.BulletedListItem
	}
	if body == nil {
		return ""
	}
	var sb strings.Builder
	for _, rt := range body.RichText {
		sb.WriteString(rt.PlainText)
	}
	return sb.String()
}

// isContainer reports block types that only group other blocks.
func isContainer(typ string) bool {
	switch typ {
	case TypeColumnList, TypeColumn, TypeSyncedBlock, TypeTemplate:
		return true
	}
	return false
}

// ChildrenPage is one page of GET /v1/blocks/{id}/children.
type ChildrenPage struct {
	Results    []Block `json:"results"`
	HasMore    bool    `json:"has_more"`
	NextCursor *string `json:"next_cursor"`
}

// Cursor returns the cursor for the next page, or "".
func (p *ChildrenPage) Cursor() string {
	if p.NextCursor == nil {
		return ""
	}
	return *p.NextCursor
}
