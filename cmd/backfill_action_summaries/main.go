package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/actionsummary-backend/internal/app"
	types "github.com/yungbote/actionsummary-backend/internal/domain/media"
	"github.com/yungbote/actionsummary-backend/internal/modules/actionsummary/steps"
	"github.com/yungbote/actionsummary-backend/internal/platform/dbctx"
)

const pageSize = 200

type idList []string

func (l *idList) String() string { return strings.Join(*l, ",") }
func (l *idList) Set(v string) error {
	v = strings.TrimSpace(v)
	if v != "" {
		*l = append(*l, v)
	}
	return nil
}

// Rewrites stored action-summary documents into the canonical run-history form.
func main() {
	var contentIDs idList
	var dryRun bool
	var limit int
	flag.Var(&contentIDs, "content", "content_item id to backfill (repeatable)")
	flag.BoolVar(&dryRun, "dry-run", false, "report documents that would change without writing")
	flag.IntVar(&limit, "limit", 0, "limit number of content items inspected")
	flag.Parse()

	application, err := app.New()
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	dbc := dbctx.Context{Ctx: context.Background()}
	repo := application.Repos.Content

	inspected, rewritten := 0, 0
	process := func(items []*types.ContentItem) bool {
		for _, item := range items {
			if item == nil || item.ID == uuid.Nil {
				continue
			}
			if limit > 0 && inspected >= limit {
				return false
			}
			inspected++
			if len(item.ActionSummary) == 0 {
				continue
			}
			meta, changed := steps.Normalize([]byte(item.ActionSummary))
			if !changed {
				continue
			}
			if dryRun {
				fmt.Printf("[dry-run] normalize content_id=%s runs=%d status=%s\n", item.ID, len(meta.Runs), meta.Status)
				rewritten++
				continue
			}
			raw, err := json.Marshal(meta)
			if err != nil {
				fmt.Printf("encode failed for content %s: %v\n", item.ID, err)
				continue
			}
			if err := repo.UpdateActionSummary(dbc, item.ID, datatypes.JSON(raw)); err != nil {
				fmt.Printf("update failed for content %s: %v\n", item.ID, err)
				continue
			}
			rewritten++
			fmt.Printf("normalized content_id=%s runs=%d\n", item.ID, len(meta.Runs))
		}
		return true
	}

	if len(contentIDs) > 0 {
		ids := make([]uuid.UUID, 0, len(contentIDs))
		for _, s := range contentIDs {
			id, err := uuid.Parse(s)
			if err == nil && id != uuid.Nil {
				ids = append(ids, id)
			}
		}
		if len(ids) == 0 {
			fmt.Println("no valid content_item id values provided")
			return
		}
		items, err := repo.GetByIDs(dbc, ids)
		if err != nil {
			fmt.Printf("load content items: %v\n", err)
			os.Exit(1)
		}
		process(items)
	} else {
		after := uuid.Nil
		for {
			page, err := repo.ListAfter(dbc, after, pageSize)
			if err != nil {
				fmt.Printf("list content items after %s: %v\n", after, err)
				os.Exit(1)
			}
			if len(page) == 0 || !process(page) {
				break
			}
			after = page[len(page)-1].ID
			if len(page) < pageSize {
				break
			}
		}
	}

	fmt.Printf("done; inspected=%d normalized=%d dry_run=%v\n", inspected, rewritten, dryRun)
}
