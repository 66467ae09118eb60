package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/threadsync/pkg/repository/firestore"
	"github.com/secmon-lab/threadsync/pkg/utils/safe"
	"github.com/urfave/cli/v3"
)

func cmdStatus() *cli.Command {
	var projectID string
	var databaseID string
	var prefix string
	var target string
	var limit int

	return &cli.Command{
		Name:  "status",
		Usage: "List sync trackers stored in Firestore for a repository",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "firestore-project-id",
				Usage:       "Firestore Project ID (required)",
				Required:    true,
				Sources:     cli.EnvVars("THREADSYNC_FIRESTORE_PROJECT_ID"),
				Destination: &projectID,
			},
			&cli.StringFlag{
				Name:        "firestore-database-id",
				Usage:       "Firestore Database ID",
				Sources:     cli.EnvVars("THREADSYNC_FIRESTORE_DATABASE_ID"),
				Destination: &databaseID,
			},
			&cli.StringFlag{
				Name:        "firestore-collection-prefix",
				Usage:       "Prefix prepended to Firestore collection names",
				Sources:     cli.EnvVars("THREADSYNC_FIRESTORE_COLLECTION_PREFIX"),
				Destination: &prefix,
			},
			&cli.StringFlag{
				Name:        "repo",
				Usage:       "Target GitHub repository in owner/name form",
				Required:    true,
				Sources:     cli.EnvVars("THREADSYNC_REPO", "GITHUB_REPOSITORY"),
				Destination: &target,
			},
			&cli.IntFlag{
				Name:        "limit",
				Usage:       "Maximum trackers to list (0 lists all)",
				Value:       50,
				Destination: &limit,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			owner, repo, ok := strings.Cut(target, "/")
			if !ok || owner == "" || repo == "" {
				return goerr.New("repo must be owner/name", goerr.V("repo", target))
			}

			var opts []firestore.Option
			if prefix != "" {
				opts = append(opts, firestore.WithCollectionPrefix(prefix))
			}
			fs, err := firestore.New(ctx, projectID, databaseID, opts...)
			if err != nil {
				return err
			}
			defer safe.Close(ctx, fs)

			records, err := fs.ListTrackers(ctx, owner, repo, limit)
			if err != nil {
				return err
			}

			printTrackers(os.Stdout, records)
			return nil
		},
	}
}

func printTrackers(w io.Writer, records []*firestore.TrackerRecord) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ISSUE\tCOMMENT\tMESSAGES\tLAST MESSAGE\tLAST AUTHOR\tUPDATED")

	for _, r := range records {
		data := r.State.Data
		author := "unknown"
		if data.LastAuthorIsTeamMember != nil {
			if *data.LastAuthorIsTeamMember {
				author = "team"
			} else {
				author = "external"
			}
		}
		_, _ = fmt.Fprintf(tw, "#%d\t%d\t%d\t%s\t%s\t%s\n",
			r.Key.Number, r.State.CommentID, len(data.Messages), data.LastMessageID,
			author, r.UpdatedAt.Format(time.RFC3339))
	}
	_ = tw.Flush()
}
