package notion

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf16"

	"github.com/jomei/notionapi"

	"tubenote/internal/blocks"
	"tubenote/internal/logging"
	"tubenote/internal/services"
)

// MaxChildrenPerRequest is the Notion limit on children in one create or
// append call.
const MaxChildrenPerRequest = 100

const maxTitleLength = 2000

// Document is one page to publish.
type Document struct {
	Title  string
	Blocks []blocks.Block
	// VideoURL, when set and embedding is enabled, adds a leading video block.
	VideoURL string
}

// Publish creates one page holding doc's blocks and returns its id. The first
// 100 children travel with the create call; the rest are appended in batches
// of 100. If an append fails the partial page is archived and the error is
// wrapped with services.ErrPublish. Neither call is retried on a server
// error, so a page is never created twice.
func (c *Client) Publish(ctx context.Context, doc Document) (string, error) {
	logger := logging.WithContext(ctx, c.logger)
	children := c.children(doc)
	first := children[:min(len(children), MaxChildrenPerRequest)]

	var page *notionapi.Page
	err := c.call(ctx, "create page", false, func(ctx context.Context) error {
		var err error
		page, err = c.api.Page.Create(ctx, c.createRequest(doc.Title, first))
		return err
	})
	if err != nil {
		return "", classify("create page", err)
	}
	pageID := ""
	if page != nil {
		pageID = strings.TrimSpace(string(page.ID))
	}
	if pageID == "" {
		return "", services.Wrap(services.ErrPublish, "notion", "create page", "response without page id", nil)
	}

	for start := len(first); start < len(children); start += MaxChildrenPerRequest {
		batch := children[start:min(start+MaxChildrenPerRequest, len(children))]
		err := c.call(ctx, "append blocks", false, func(ctx context.Context) error {
			_, err := c.api.Block.AppendChildren(ctx, notionapi.BlockID(pageID), &notionapi.AppendBlockChildrenRequest{Children: batch})
			return err
		})
		if err != nil {
			c.archivePartial(ctx, logger, pageID)
			return "", classify("append blocks", err)
		}
	}
	logger.Debug("notion page published",
		logging.String("page_id", pageID),
		logging.String("page_url", page.URL),
		logging.Int("children", len(children)),
	)
	return pageID, nil
}

// Archive moves a page to the trash. Archiving is idempotent, so server
// errors are retried.
func (c *Client) Archive(ctx context.Context, pageID string) error {
	return c.call(ctx, "archive page", true, func(ctx context.Context) error {
		_, err := c.api.Page.Update(ctx, notionapi.PageID(pageID), &notionapi.PageUpdateRequest{
			Properties: notionapi.Properties{},
			Archived:   true,
		})
		return err
	})
}

func (c *Client) archivePartial(ctx context.Context, logger *slog.Logger, pageID string) {
	// The item context may already be done; archiving must still be attempted.
	archiveCtx := context.WithoutCancel(ctx)
	if err := c.Archive(archiveCtx, pageID); err != nil {
		logging.WarnWithContext(logger, "partial page not archived",
			"notion_archive_failed",
			logging.String("page_id", pageID),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove the incomplete page manually"),
			logging.String(logging.FieldImpact, "an incomplete page remains in the workspace"),
		)
		return
	}
	logger.Info("partial page archived", logging.String("page_id", pageID))
}

func (c *Client) createRequest(title string, children []notionapi.Block) *notionapi.PageCreateRequest {
	parent := notionapi.Parent{Type: notionapi.ParentTypePageID, PageID: notionapi.PageID(c.cfg.ParentID)}
	titleKey := "title"
	if c.cfg.ParentType == "database" {
		parent = notionapi.Parent{Type: notionapi.ParentTypeDatabaseID, DatabaseID: notionapi.DatabaseID(c.cfg.ParentID)}
		titleKey = c.cfg.TitleProperty
	}
	return &notionapi.PageCreateRequest{
		Parent: parent,
		Properties: notionapi.Properties{
			titleKey: notionapi.TitleProperty{
				Type:  notionapi.PropertyTypeTitle,
				Title: []notionapi.RichText{textRun(truncate(title, maxTitleLength))},
			},
		},
		Children: children,
	}
}

func (c *Client) children(doc Document) []notionapi.Block {
	out := make([]notionapi.Block, 0, len(doc.Blocks)+1)
	if c.cfg.EmbedVideo && strings.TrimSpace(doc.VideoURL) != "" {
		out = append(out, notionapi.VideoBlock{
			BasicBlock: notionapi.BasicBlock{Object: notionapi.ObjectTypeBlock, Type: notionapi.BlockTypeVideo},
			Video: notionapi.Video{
				Type:     notionapi.FileTypeExternal,
				External: &notionapi.FileObject{URL: strings.TrimSpace(doc.VideoURL)},
			},
		})
	}
	for _, b := range doc.Blocks {
		out = append(out, paragraphBlock(b.Content))
	}
	return out
}

func paragraphBlock(content string) notionapi.ParagraphBlock {
	return notionapi.ParagraphBlock{
		BasicBlock: notionapi.BasicBlock{Object: notionapi.ObjectTypeBlock, Type: notionapi.BlockTypeParagraph},
		Paragraph:  notionapi.Paragraph{RichText: []notionapi.RichText{textRun(content)}},
	}
}

func textRun(content string) notionapi.RichText {
	return notionapi.RichText{Text: &notionapi.Text{Content: content}}
}

// truncate cuts value to at most limit UTF-16 code units, the unit Notion
// measures text length in.
func truncate(value string, limit int) string {
	units := 0
	for i, r := range value {
		units += utf16.RuneLen(r)
		if units > limit {
			return value[:i]
		}
	}
	return value
}
