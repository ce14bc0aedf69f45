package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/notelab/sidechat/internal/chat"
	"github.com/notelab/sidechat/internal/export"
	"github.com/notelab/sidechat/internal/history"
	"github.com/notelab/sidechat/internal/search"
)

type app struct {
	controller  *chat.Controller
	store       *history.Store
	index       *history.Index
	searchIndex *search.Index
	model       string

	// streaming display state
	streamID string
	printed  int
}

// onProgress prints whatever the in-flight assistant item has accumulated
// since the last call. The final call after completion flushes the rest.
func (a *app) onProgress() {
	items := a.controller.Session().Items
	for i := len(items) - 1; i >= 0; i-- {
		item := items[i]
		if !item.Loading && item.ID != a.streamID {
			continue
		}
		if item.ID != a.streamID {
			a.streamID = item.ID
			a.printed = 0
		}
		if len(item.Content) > a.printed {
			fmt.Print(item.Content[a.printed:])
			a.printed = len(item.Content)
		}
		if !item.Loading {
			fmt.Println()
			a.streamID = ""
			a.printed = 0
		}
		return
	}
}

func (a *app) repl(ctx context.Context) error {
	log.Printf("sidechat ready (model: %s), /help for commands", a.model)

	// First Ctrl-C aborts the in-flight request; a second one exits.
	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt)
	defer signal.Stop(interrupts)
	go func() {
		for range interrupts {
			if a.controller.Busy() {
				fmt.Println("\n(aborted)")
				a.controller.Abort()
			} else {
				os.Exit(0)
			}
		}
	}()

	s := bufio.NewScanner(os.Stdin)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Print("you> ")
		if !s.Scan() {
			break
		}
		line := strings.TrimSpace(s.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if quit := a.command(ctx, line); quit {
				break
			}
			continue
		}

		if err := a.controller.Send(ctx, line, nil, nil); err != nil {
			if errors.Is(err, chat.ErrCancelled) {
				continue
			}
			log.Printf("error: %v", err)
		}
	}
	return s.Err()
}

// command dispatches a slash command. Returns true when the REPL should exit.
func (a *app) command(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "/quit", "/exit":
		return true

	case "/help":
		a.printHelp()

	case "/show":
		a.printTranscript()

	case "/new":
		if err := a.controller.NewSession(); err != nil {
			log.Printf("error: %v", err)
		}

	case "/sep":
		if len(args) == 0 {
			a.controller.ToggleSeparator()
		} else if n, ok := a.itemIndex(args[0]); ok {
			if err := a.controller.ToggleSeparatorAt(n); err != nil {
				log.Printf("error: %v", err)
			}
		}

	case "/hide":
		if n, ok := a.itemIndex(arg(args, 0)); ok {
			if err := a.controller.ToggleHidden(n, nil); err != nil {
				log.Printf("error: %v", err)
			}
		}

	case "/rerun":
		if n, ok := a.itemIndex(arg(args, 0)); ok {
			if err := a.controller.ReRun(ctx, n); err != nil && !errors.Is(err, chat.ErrCancelled) {
				log.Printf("error: %v", err)
			}
		}

	case "/versions":
		if n, ok := a.itemIndex(arg(args, 0)); ok {
			a.printVersions(n)
		}

	case "/switch":
		if n, ok := a.itemIndex(arg(args, 0)); ok && len(args) > 1 {
			item := a.controller.Session().Items[n]
			if !a.controller.SwitchVersion(item.ID, chat.VersionKey(args[1])) {
				log.Printf("no version %s on item %d", args[1], n)
			}
		}

	case "/delver":
		if n, ok := a.itemIndex(arg(args, 0)); ok && len(args) > 1 {
			item := a.controller.Session().Items[n]
			if err := a.controller.DeleteVersion(item.ID, chat.VersionKey(args[1]), true); err != nil {
				log.Printf("error: %v", err)
			}
		}

	case "/tag":
		if len(args) > 0 {
			a.controller.AddTag(args[0])
		}

	case "/untag":
		if len(args) > 0 {
			a.controller.RemoveTag(args[0])
		}

	case "/title":
		sess := a.controller.Session()
		sess.Title = strings.Join(args, " ")

	case "/save":
		snapshot := a.controller.Snapshot()
		if err := a.store.Save(snapshot); err != nil {
			log.Printf("error: %v", err)
			break
		}
		if err := a.searchIndex.IndexSession(snapshot); err != nil {
			log.Printf("failed to index session: %v", err)
		}
		log.Printf("saved %s", snapshot.ID)

	case "/load":
		if len(args) == 0 {
			log.Println("usage: /load <session-id>")
			break
		}
		sess, err := a.store.Load(args[0])
		if err != nil {
			log.Printf("error: %v", err)
			break
		}
		if err := a.controller.Apply(sess); err != nil {
			log.Printf("error: %v", err)
			break
		}
		a.printTranscript()

	case "/list":
		metas, err := a.index.List(arg(args, 0))
		if err != nil {
			log.Printf("error: %v", err)
			break
		}
		for _, m := range metas {
			title := m.Title
			if title == "" {
				title = "(untitled)"
			}
			fmt.Printf("%s  %s  %d items  %s\n", m.ID, m.UpdatedAt.Format("2006-01-02 15:04"), m.Items, title)
		}

	case "/export":
		a.export(args)

	case "/search":
		if len(args) == 0 {
			log.Println("usage: /search <query>")
			break
		}
		results, err := a.searchIndex.Search(strings.Join(args, " "), "", 10)
		if err != nil {
			log.Printf("error: %v", err)
			break
		}
		for _, r := range results {
			fmt.Printf("%.2f  %s  %s  [%s] %s\n", r.Score, r.SessionID, r.ItemID, r.Role, r.Title)
		}

	case "/abort":
		a.controller.Abort()

	default:
		log.Printf("unknown command %s, /help for commands", cmd)
	}
	return false
}

func (a *app) export(args []string) {
	if len(args) == 0 {
		log.Println("usage: /export <md|json|yaml> [path]")
		return
	}
	exporter, err := export.NewExporter(args[0])
	if err != nil {
		log.Printf("error: %v", err)
		return
	}

	sess := a.controller.Snapshot()
	path := fmt.Sprintf("%s.%s", sess.ID, exporter.Extension())
	if len(args) > 1 {
		path = args[1]
	}

	f, err := os.Create(path)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}
	defer f.Close()

	if err := exporter.Export(sess, f); err != nil {
		log.Printf("error: %v", err)
		return
	}
	log.Printf("exported to %s", path)
}

func (a *app) printTranscript() {
	for i, item := range a.controller.Session().Items {
		if item.Kind == chat.KindSeparator {
			fmt.Printf("%3d  --------\n", i)
			continue
		}
		marker := " "
		if item.Hidden {
			marker = "H"
		}
		content := item.Content
		if len(content) > 80 {
			content = content[:77] + "..."
		}
		content = strings.ReplaceAll(content, "\n", " ")
		fmt.Printf("%3d %s[%s] %s\n", i, marker, item.Role, content)
	}
}

func (a *app) printVersions(n int) {
	item := a.controller.Session().Items[n]
	if len(item.Versions) == 0 {
		fmt.Println("(no stored versions)")
		return
	}
	for _, key := range item.VersionKeys() {
		marker := " "
		if key == item.CurrentVersion {
			marker = "*"
		}
		snap := item.Versions[key]
		content := snap.Content
		if len(content) > 60 {
			content = content[:57] + "..."
		}
		fmt.Printf("%s %s  %s\n", marker, key, strings.ReplaceAll(content, "\n", " "))
	}
}

func (a *app) printHelp() {
	fmt.Print(`commands:
  /show                  print the transcript
  /sep [n]               toggle a context boundary (after item n, or at the end)
  /hide <n>              toggle visibility of item n
  /rerun <n>             regenerate pivoting on item n
  /versions <n>          list stored versions of item n
  /switch <n> <key>      make a stored version current
  /delver <n> <key>      delete a stored version
  /tag <t> /untag <t>    manage session tags
  /title <text>          set the session title
  /new /save /load <id>  session lifecycle
  /list [tag]            list saved sessions
  /export <fmt> [path]   export the session (md, json, yaml)
  /search <query>        full-text search over saved sessions
  /abort                 cancel the in-flight request
  /quit
`)
}

func (a *app) itemIndex(s string) (int, bool) {
	if s == "" {
		log.Println("an item number is required")
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n >= len(a.controller.Session().Items) {
		log.Printf("no item %s", s)
		return 0, false
	}
	return n, true
}

func arg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}
