// Command inspect prints the stored messages as a table, reading either the
// badger directory or the JSON snapshot file. Badger is opened read-only so
// the server can keep running.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
	"terminal-messenger/domain"
	"terminal-messenger/internal"
	"terminal-messenger/repositories"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
)

const previewLength = 40

func main() {
	backend := flag.String("backend", internal.BackendFile, "store to read: file or badger")
	dbPath := flag.String("db", "./data/badger", "Path to badger DB")
	filePath := flag.String("file", "messages.json", "Path to the JSON snapshot")
	ttl := flag.Duration("ttl", 0, "flag messages older than this as expired (0 disables)")
	flag.Parse()

	logger := logs.GetLoggerFromLevel(slog.LevelError)
	var repository repositories.IMessageRepository
	switch *backend {
	case internal.BackendBadger:
		db, err := openDB(*dbPath)
		if err != nil {
			log.Fatal("Error while opening Badger: ", err)
		}
		defer func() { _ = db.Close() }()
		repository = repositories.NewBadgerMessageRepository(db, logger, 0)
	case internal.BackendFile:
		if _, err := os.Stat(*filePath); err != nil {
			log.Fatal("Error while opening snapshot: ", err)
		}
		fileRepository, err := repositories.NewFileMessageRepository(*filePath, logger)
		if err != nil {
			log.Fatal(err)
		}
		repository = fileRepository
	default:
		log.Fatalf("unknown backend %q", *backend)
	}

	messages, err := repository.List()
	if err != nil {
		log.Fatal(err)
	}
	writeTable(os.Stdout, messages, time.Now(), *ttl)
}

func writeTable(w io.Writer, messages []domain.Message, now time.Time, ttl time.Duration) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Theme", "Lang", "Created", "Age", "Status", "Message"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	for _, m := range messages {
		status := "live"
		if m.Expired(now, ttl) {
			status = "expired"
		}
		table.Append([]string{
			m.ID,
			m.Theme,
			m.Lang,
			m.CreatedAt.Format(time.RFC3339),
			m.Age(now).Round(time.Second).String(),
			status,
			preview(m.Content),
		})
	}
	table.Render()
	fmt.Fprintf(w, "%d message(s)\n", len(messages))
}

// preview flattens the content to one line of at most previewLength runes.
func preview(content string) string {
	flat := strings.Join(strings.Fields(content), " ")
	runes := []rune(flat)
	if len(runes) <= previewLength {
		return flat
	}
	return string(runes[:previewLength-1]) + "…"
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true)
	return badger.Open(opts)
}
