// Command topictree is an interactive terminal explorer for academic keyword
// trees. It drives a research session against an OpenAI-compatible model:
// search keywords, expand subtopics, look up literature, build a keyword
// network, and export the session as a snapshot or report.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/smallnest/topictree/collab"
	"github.com/smallnest/topictree/log"
	"github.com/smallnest/topictree/netgraph"
	"github.com/smallnest/topictree/report"
	"github.com/smallnest/topictree/session"
	"github.com/smallnest/topictree/store/file"
	"github.com/smallnest/topictree/tree"
)

var (
	styleTitle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#2CD7C7"))
	styleKeyword = lipgloss.NewStyle().Foreground(lipgloss.Color("#20B9B4"))
	styleID      = lipgloss.NewStyle().Foreground(lipgloss.Color("#2C4A54"))
	styleHot     = lipgloss.NewStyle().Foreground(lipgloss.Color("#E74C3C"))
	styleClassic = lipgloss.NewStyle().Foreground(lipgloss.Color("#F4D03F"))
	styleNiche   = lipgloss.NewStyle().Foreground(lipgloss.Color("#1D9EA3"))
	styleError   = lipgloss.NewStyle().Foreground(lipgloss.Color("#E74C3C"))
	styleMuted   = lipgloss.NewStyle().Foreground(lipgloss.Color("#2C4A54"))
)

// Config holds application configuration
type Config struct {
	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string
	SnapshotDir   string
}

// loadEnv loads environment variables from .env file if it exists
func loadEnv() {
	content, err := os.ReadFile(".env")
	if err != nil {
		return
	}
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if key, value, ok := strings.Cut(line, "="); ok {
			os.Setenv(strings.TrimSpace(key), strings.TrimSpace(value))
		}
	}
}

func getConfig() Config {
	return Config{
		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:   getEnvOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL: os.Getenv("OPENAI_BASE_URL"),
		SnapshotDir:   getEnvOrDefault("TOPICTREE_SNAPSHOT_DIR", ".topictree"),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	loadEnv()
	cfg := getConfig()

	if cfg.OpenAIAPIKey == "" {
		fmt.Fprintln(os.Stderr, styleError.Render("OPENAI_API_KEY is not set"))
		os.Exit(1)
	}

	modelOpts := []openai.Option{
		openai.WithToken(cfg.OpenAIAPIKey),
		openai.WithModel(cfg.OpenAIModel),
	}
	if cfg.OpenAIBaseURL != "" {
		modelOpts = append(modelOpts, openai.WithBaseURL(cfg.OpenAIBaseURL))
	}
	model, err := openai.New(modelOpts...)
	if err != nil {
		fmt.Fprintln(os.Stderr, styleError.Render("failed to create model: "+err.Error()))
		os.Exit(1)
	}

	snapshots, err := file.NewFileSnapshotStore(cfg.SnapshotDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, styleError.Render("failed to open snapshot store: "+err.Error()))
		os.Exit(1)
	}

	collaborator := collab.NewModelCollaborator(model)
	orch := session.New(collaborator, session.WithLogger(log.NoOpLogger{}))

	app := &app{
		orch:      orch,
		snapshots: snapshots,
	}
	app.run()
}

type app struct {
	orch      *session.Orchestrator
	snapshots *file.FileSnapshotStore
}

func (a *app) run() {
	fmt.Println(styleTitle.Render("topictree"), styleMuted.Render("— keyword tree explorer. Type 'help' for commands."))

	scanner := bufio.NewScanner(os.Stdin)
	ctx := context.Background()
	for {
		fmt.Print(styleKeyword.Render("> "))
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		cmd, arg, _ := strings.Cut(line, " ")
		arg = strings.TrimSpace(arg)

		switch cmd {
		case "quit", "exit":
			return
		case "help":
			a.printHelp()
		case "search":
			a.search(ctx, arg)
		case "tree":
			a.printForest()
		case "expand":
			a.report(a.orch.ExpandNode(ctx, arg, ""))
			a.printForest()
		case "lit":
			a.literature(ctx, arg)
		case "collect":
			a.collect(arg)
		case "papers":
			a.printCollection()
		case "select":
			a.orch.ToggleSelection(arg, true)
			a.printSelection()
		case "unselect":
			a.orch.ToggleSelection(arg, false)
			a.printSelection()
		case "network":
			a.printNetwork()
		case "regen":
			a.report(a.orch.RegenerateNetwork(ctx))
			a.printNetwork()
		case "refresh":
			a.report(a.orch.RefreshTree(ctx, arg))
			a.printForest()
		case "save":
			a.save(ctx)
		case "snapshots":
			a.listSnapshots(ctx)
		case "load":
			a.load(ctx, arg)
		case "export":
			a.export(arg)
		case "mermaid":
			a.mermaid()
		case "abstract":
			a.abstract(ctx, arg)
		case "budget":
			fmt.Printf("mutations used: %d of %d\n", a.orch.MutationsUsed(), a.orch.MutationLimit())
		default:
			fmt.Println(styleError.Render("unknown command: " + cmd))
		}
	}
}

func (a *app) printHelp() {
	fmt.Println(`Commands:
  search <kw1; kw2; ...>  start a new search
  tree                    show the keyword trees
  expand <node-id>        expand a node into subtopics
  lit <node-id>           look up literature for a node
  collect <n>             toggle-collect paper n from the literature panel
  papers                  show collected papers
  select <keyword>        add a keyword to the network selection
  unselect <keyword>      remove a keyword from the selection
  network                 show the keyword network
  regen                   regenerate the network from the selection
  refresh <keyword>       regenerate one keyword's tree
  save                    save a session snapshot
  snapshots               list saved snapshots
  load <id>               restore a snapshot
  export <file>           write a report (.md or .html)
  mermaid                 print the network as a Mermaid diagram
  abstract <url>          fetch a paper page's title and abstract
  budget                  show the mutation budget
  quit                    exit`)
}

func (a *app) report(err error) {
	if err != nil {
		fmt.Println(styleError.Render(err.Error()))
	}
}

func (a *app) search(ctx context.Context, arg string) {
	var keywords []string
	for _, k := range strings.Split(arg, ";") {
		keywords = append(keywords, strings.TrimSpace(k))
	}
	fmt.Println(styleMuted.Render("searching..."))
	if err := a.orch.StartSearch(ctx, keywords); err != nil {
		a.report(err)
		return
	}
	a.printForest()
}

func (a *app) printForest() {
	state := a.orch.State()
	if len(state.Forest) == 0 {
		fmt.Println(styleMuted.Render("no trees yet; use 'search' first"))
		return
	}
	for _, root := range state.Forest {
		fmt.Println(styleTitle.Render(root.Keyword), styleID.Render("["+root.ID+"]"))
		for _, child := range root.Children {
			printNode(child, 1)
		}
	}
}

func printNode(n *tree.Node, depth int) {
	indent := strings.Repeat("  ", depth)
	line := indent + styleKeyword.Render(n.Keyword)
	switch n.Label {
	case tree.LabelHot:
		line += " " + styleHot.Render("(hot)")
	case tree.LabelClassic:
		line += " " + styleClassic.Render("(classic)")
	case tree.LabelNiche:
		line += " " + styleNiche.Render("(niche)")
	}
	if len(n.Literature) > 0 {
		line += styleMuted.Render(fmt.Sprintf(" [%d papers]", len(n.Literature)))
	}
	fmt.Println(line, styleID.Render("["+n.ID+"]"))
	for _, child := range n.Children {
		printNode(child, depth+1)
	}
}

func (a *app) literature(ctx context.Context, nodeID string) {
	fmt.Println(styleMuted.Render("looking up literature..."))
	if err := a.orch.SelectNodeForLiterature(ctx, nodeID); err != nil {
		a.report(err)
		return
	}
	state := a.orch.State()
	if state.LiteratureNode == nil || len(state.LiteratureNode.Literature) == 0 {
		fmt.Println(styleMuted.Render("no papers found"))
		return
	}
	fmt.Println(styleTitle.Render("Literature for " + state.LiteratureNode.Keyword))
	for i, p := range state.LiteratureNode.Literature {
		fmt.Printf("%2d. %s", i+1, p.Title)
		if p.Year > 0 {
			fmt.Printf(" (%d)", p.Year)
		}
		fmt.Println()
		fmt.Println("    " + styleMuted.Render(p.URL))
	}
}

func (a *app) collect(arg string) {
	state := a.orch.State()
	if state.LiteratureNode == nil {
		fmt.Println(styleError.Render("no literature panel open; use 'lit' first"))
		return
	}
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > len(state.LiteratureNode.Literature) {
		fmt.Println(styleError.Render("give a paper number from the literature panel"))
		return
	}
	a.orch.ToggleCollect(state.LiteratureNode.Literature[n-1], state.LiteratureNode.Keyword)
	a.printCollection()
}

func (a *app) printCollection() {
	collected := a.orch.State().Collected
	if len(collected) == 0 {
		fmt.Println(styleMuted.Render("no papers collected"))
		return
	}
	fmt.Println(styleTitle.Render("Collected papers"))
	for i, c := range collected {
		fmt.Printf("%2d. %s %s\n", i+1, c.Paper.Title, styleMuted.Render("(from "+c.SourceKeyword+")"))
	}
}

func (a *app) printSelection() {
	selection := a.orch.State().Selection
	fmt.Println("selection:", styleKeyword.Render(strings.Join(selection, ", ")))
}

func (a *app) printNetwork() {
	network := a.orch.State().Network
	if network == nil {
		fmt.Println(styleMuted.Render("no network yet"))
		return
	}
	fmt.Print(netgraph.NewExporter(network).DrawASCII())
}

func (a *app) mermaid() {
	network := a.orch.State().Network
	if network == nil {
		fmt.Println(styleMuted.Render("no network yet"))
		return
	}
	fmt.Println(netgraph.NewExporter(network).DrawMermaid())
}

func (a *app) save(ctx context.Context) {
	snapshot := a.orch.Snapshot()
	if err := a.snapshots.Save(ctx, snapshot); err != nil {
		a.report(err)
		return
	}
	fmt.Println("saved snapshot", styleKeyword.Render(snapshot.ID))
}

func (a *app) listSnapshots(ctx context.Context) {
	list, err := a.snapshots.List(ctx)
	if err != nil {
		a.report(err)
		return
	}
	if len(list) == 0 {
		fmt.Println(styleMuted.Render("no snapshots saved"))
		return
	}
	for _, s := range list {
		fmt.Printf("%s  %s  %d trees, %d papers\n",
			s.CreatedAt.Format("2006-01-02 15:04"),
			styleKeyword.Render(s.ID),
			len(s.Trees), len(s.Collection))
	}
}

func (a *app) load(ctx context.Context, id string) {
	snapshot, err := a.snapshots.Load(ctx, id)
	if err != nil {
		a.report(err)
		return
	}
	a.orch.Restore(snapshot)
	fmt.Println("restored snapshot", styleKeyword.Render(id))
	a.printForest()
}

func (a *app) export(path string) {
	if path == "" {
		fmt.Println(styleError.Render("give a file name ending in .md or .html"))
		return
	}
	snapshot := a.orch.Snapshot()

	var data []byte
	if strings.HasSuffix(path, ".html") {
		data = report.HTML(snapshot)
	} else {
		data = []byte(report.Markdown(snapshot))
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		a.report(err)
		return
	}
	fmt.Println("wrote report to", styleKeyword.Render(path))
}

func (a *app) abstract(ctx context.Context, url string) {
	if url == "" {
		fmt.Println(styleError.Render("give a paper URL"))
		return
	}
	summary, err := collab.FetchAbstract(ctx, url)
	if err != nil {
		a.report(err)
		return
	}
	if summary.Title != "" {
		fmt.Println(styleTitle.Render(summary.Title))
	}
	fmt.Println(summary.Abstract)
}
