package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"prima-facie-go/internal/config"
	"prima-facie-go/internal/model"
	"prima-facie-go/internal/repository"
	"prima-facie-go/internal/scheduler"
	"prima-facie-go/pkg/database"
	"prima-facie-go/pkg/es"
	"prima-facie-go/pkg/log"
	"prima-facie-go/pkg/tasks"
	"prima-facie-go/pkg/token"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := database.OpenGorm(config.Conf.Database.Driver, config.Conf.Database.DSN)
		if err != nil {
			return err
		}
		if err := model.AutoMigrate(db); err != nil {
			return fmt.Errorf("数据库迁移失败: %w", err)
		}
		log.Info("数据库迁移完成")
		return nil
	},
}

var notifyFlags struct {
	eventType string
	lawFirmID string
	matterID  string
	contactID string
	metadata  string
}

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Run the notification engine once for one event and print the outcome",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireFlag("type", notifyFlags.eventType); err != nil {
			return err
		}
		if err := requireFlag("firm", notifyFlags.lawFirmID); err != nil {
			return err
		}
		ev := tasks.NotificationEvent{
			EventType: tasks.EventType(notifyFlags.eventType),
			LawFirmID: notifyFlags.lawFirmID,
			MatterID:  notifyFlags.matterID,
			ContactID: notifyFlags.contactID,
		}
		if notifyFlags.metadata != "" {
			if err := json.Unmarshal([]byte(notifyFlags.metadata), &ev.Metadata); err != nil {
				return fmt.Errorf("invalid --metadata: %w", err)
			}
		}

		ctx := cmd.Context()
		a, err := newApp(ctx, config.Conf)
		if err != nil {
			return err
		}
		defer a.close()

		out := a.notifications.Notify(ctx, ev)
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

var tokenFlags struct {
	profileID string
	ttl       time.Duration
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a development access token for a profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireFlag("profile", tokenFlags.profileID); err != nil {
			return err
		}
		db, err := database.OpenGorm(config.Conf.Database.Driver, config.Conf.Database.DSN)
		if err != nil {
			return err
		}
		p, err := repository.NewProfileRepository(db).FindByID(cmd.Context(), tokenFlags.profileID)
		if err != nil {
			return fmt.Errorf("load profile: %w", err)
		}
		contactID := ""
		if p.ContactID != nil {
			contactID = *p.ContactID
		}
		m := token.NewJWTManager(config.Conf.JWT.Secret, config.Conf.JWT.Issuer, tokenFlags.ttl)
		tok, err := m.GenerateToken(p.ID, p.LawFirmID, string(p.UserType), contactID)
		if err != nil {
			return err
		}
		fmt.Println(tok)
		return nil
	},
}

var reindexFirm string

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Index a firm's documents into Elasticsearch",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireFlag("firm", reindexFirm); err != nil {
			return err
		}
		ctx := cmd.Context()
		a, err := newApp(ctx, config.Conf)
		if err != nil {
			return err
		}
		defer a.close()
		if a.searcher == nil {
			return fmt.Errorf("elasticsearch is disabled")
		}
		n, err := reindex(ctx, a.matters, a.searcher, reindexFirm)
		if err != nil {
			return err
		}
		log.Infof("已索引 %d 个文档, lawFirmId=%s", n, reindexFirm)
		return nil
	},
}

const reindexPageSize = 100

type documentIndexer interface {
	IndexDocument(ctx context.Context, doc es.IndexedDocument) error
}

// reindex pages through all of the firm's documents. Only metadata is indexed;
// file contents live in object storage and are not extracted.
func reindex(ctx context.Context, matters repository.MatterRepository, indexer documentIndexer, lawFirmID string) (int, error) {
	n := 0
	for offset := 0; ; offset += reindexPageSize {
		docs, err := matters.ListDocuments(ctx, lawFirmID, repository.DocumentFilter{Limit: reindexPageSize, Offset: offset})
		if err != nil {
			return n, err
		}
		for _, d := range docs {
			doc := es.IndexedDocument{DocumentID: d.ID, LawFirmID: d.LawFirmID, Name: d.Name}
			if d.MatterID != nil {
				doc.MatterID = *d.MatterID
			}
			if err := indexer.IndexDocument(ctx, doc); err != nil {
				log.Warnw("索引文档失败", "documentId", d.ID, "error", err)
				continue
			}
			n++
		}
		if len(docs) < reindexPageSize {
			return n, nil
		}
	}
}

var scanDeadlinesCmd = &cobra.Command{
	Use:   "scan-deadlines",
	Short: "Run the deadline scan once and notify clients inline",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, config.Conf)
		if err != nil {
			return err
		}
		defer a.close()

		publisher := &outcomePrinter{app: a}
		n, err := scheduler.NewDeadlineScanner(a.matters, publisher, config.Conf.Scheduler.DeadlineWindowDays).Scan(ctx)
		if err != nil {
			return err
		}
		log.Infof("截止日期扫描完成, 事件数: %d", n)
		return nil
	},
}

// outcomePrinter runs each event synchronously and logs the outcome.
type outcomePrinter struct {
	app *app
}

func (p *outcomePrinter) Publish(ctx context.Context, ev tasks.NotificationEvent) error {
	out := p.app.notifications.Notify(ctx, ev)
	log.Infow("通知结果", "matterId", ev.MatterID, "lawFirmId", ev.LawFirmID, "outcome", out.Kind, "reason", out.Reason)
	return nil
}

func init() {
	notifyCmd.Flags().StringVar(&notifyFlags.eventType, "type", "", "event type, e.g. matter_status_change")
	notifyCmd.Flags().StringVar(&notifyFlags.lawFirmID, "firm", "", "law firm id")
	notifyCmd.Flags().StringVar(&notifyFlags.matterID, "matter", "", "matter id")
	notifyCmd.Flags().StringVar(&notifyFlags.contactID, "contact", "", "contact id")
	notifyCmd.Flags().StringVar(&notifyFlags.metadata, "metadata", "", "event metadata as a JSON object")

	tokenCmd.Flags().StringVar(&tokenFlags.profileID, "profile", "", "profile id")
	tokenCmd.Flags().DurationVar(&tokenFlags.ttl, "ttl", time.Hour, "token lifetime")

	reindexCmd.Flags().StringVar(&reindexFirm, "firm", "", "law firm id")
}
