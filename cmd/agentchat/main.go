package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"agentchat/internal/client"
	"agentchat/internal/config"
	"agentchat/internal/history"
	"agentchat/internal/logging"
	"agentchat/internal/protocol"
	"agentchat/internal/state"
	"agentchat/internal/upload"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		serverURL  string
		configPath string
		resumeID   string
	)

	cmd := &cobra.Command{
		Use:   "agentchat",
		Short: "Chat with an AI-agent backend over WebSocket",
		Long: `agentchat maintains a persistent connection to an AI-agent backend and
streams its session state to the terminal. Lines typed on stdin are sent
as chat messages; /stop, /new, /switch, /upload, /clear and /quit are
commands.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(serverURL, configPath, resumeID)
		},
	}

	cmd.Flags().StringVar(&serverURL, "server", "", "WebSocket URL of the agent backend")
	cmd.Flags().StringVar(&configPath, "config", defaultConfigPath(), "Path to the TOML config file")
	cmd.Flags().StringVar(&resumeID, "resume", "", "Session ID to resume")
	return cmd
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "agentchat.toml"
	}
	return home + "/.config/agentchat/config.toml"
}

func run(serverURL, configPath, resumeID string) error {
	logger := logging.NewLogger("agentchat")

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if serverURL != "" {
		cfg.ServerURL = serverURL
	}

	// Live-reload the provider table so a /switch after a config edit
	// sees the new options without a restart.
	table := &providerTable{providers: cfg.Providers}
	if w, err := config.NewWatcher(configPath, func(next config.Config) {
		table.set(next.Providers)
	}); err == nil {
		defer w.Close()
	}

	var (
		engineMu   sync.Mutex
		lastEngine state.EngineState
	)
	sup := client.New(client.Options{
		URL:            cfg.ServerURL,
		ReconnectDelay: cfg.ReconnectDelay,
		PingInterval:   cfg.PingInterval,
		OnStateChange: func(s state.SessionState) {
			engineMu.Lock()
			changed := s.Engine != lastEngine
			lastEngine = s.Engine
			engineMu.Unlock()
			if changed {
				fmt.Printf("[%s]\n", s.Engine)
			}
			if s.Error != "" {
				fmt.Printf("error: %s\n", s.Error)
			}
		},
	})
	defer sup.Close()

	// Print assistant text as it streams in.
	sup.Subscribe(func(msg *protocol.Message) {
		if msg.Type != protocol.TypeText {
			return
		}
		var p struct {
			Content string `json:"content"`
		}
		if err := json.Unmarshal(msg.Data, &p); err == nil && p.Content != "" {
			fmt.Println(p.Content)
		}
	})

	if err := sup.Connect(); err != nil {
		logger.WithError(err).Warn("initial connect failed, retrying in background")
	}

	if resumeID != "" {
		printTranscript(cfg.HistoryURL, resumeID)
		if err := sup.ResumeSession(resumeID); err != nil {
			logger.WithError(err).Warn("resume request failed")
		}
	}

	// Graceful shutdown on signals.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		sup.Close()
		os.Exit(0)
	}()

	session := &chatSession{
		sup:      sup,
		table:    table,
		uploader: upload.NewClient(cfg.UploadURL),
	}

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := session.handleLine(line); err != nil {
			if err == errQuit {
				return nil
			}
			fmt.Fprintln(os.Stderr, err)
		}
	}
	return scanner.Err()
}

var errQuit = fmt.Errorf("quit")

// providerTable is the live view of the config's provider section,
// swapped out by the config watcher.
type providerTable struct {
	mu        sync.RWMutex
	providers map[string]config.Provider
}

func (p *providerTable) set(next map[string]config.Provider) {
	p.mu.Lock()
	p.providers = next
	p.mu.Unlock()
}

func (p *providerTable) options(provider string) map[string]string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if entry, ok := p.providers[provider]; ok {
		return entry.Options
	}
	return nil
}

// chatSession ties the stdin loop's commands to the supervisor and holds
// file IDs uploaded since the last chat message.
type chatSession struct {
	sup      *client.Supervisor
	table    *providerTable
	uploader *upload.Client
	pending  []string
}

func (c *chatSession) handleLine(line string) error {
	if !strings.HasPrefix(line, "/") {
		attachments := c.pending
		c.pending = nil
		return c.sup.SendChat(line, attachments)
	}

	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit":
		return errQuit
	case "/stop":
		return c.sup.SendStop()
	case "/new":
		return c.sup.NewSession()
	case "/clear":
		return c.sup.ClearHistory()
	case "/upload":
		if len(fields) < 2 {
			return fmt.Errorf("usage: /upload <path>")
		}
		return c.uploadFile(fields[1])
	case "/switch":
		if len(fields) < 2 {
			return fmt.Errorf("usage: /switch <provider> [model]")
		}
		provider := fields[1]
		model := ""
		if len(fields) > 2 {
			model = fields[2]
		}
		return c.sup.SwitchProvider(provider, model, c.table.options(provider))
	default:
		return fmt.Errorf("unknown command: %s", fields[0])
	}
}

// uploadFile sends a file to the backend and queues the returned ID as an
// attachment on the next chat message.
func (c *chatSession) uploadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	id, err := c.uploader.Upload(ctx, filepath.Base(path), f)
	if err != nil {
		return err
	}
	c.pending = append(c.pending, id)
	fmt.Printf("uploaded %s (attached to next message)\n", path)
	return nil
}

// printTranscript fetches and prints a prior session's transcript before
// the resumed stream starts.
func printTranscript(baseURL, sessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	entries, err := history.NewClient(baseURL).Fetch(ctx, sessionID)
	if err != nil {
		logging.NewLogger("agentchat").WithError(err).Warn("transcript fetch failed")
		return
	}
	for _, e := range entries {
		fmt.Printf("%s: %s\n", e.Role, e.Content)
	}
}
