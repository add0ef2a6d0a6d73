package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"moviedb/internal/commands"
	"moviedb/internal/grpcserver"
	"moviedb/pkg/apperr"
	"moviedb/pkg/logging"
	"moviedb/pkg/models"
)

const defaultBaseURL = "http://localhost:8080"

type tokenData struct {
	Token string `json:"token"`
}

// invoker runs one command against a server.
type invoker interface {
	Invoke(ctx context.Context, token, command string, params any) (json.RawMessage, error)
}

func main() {
	logging.Init(logging.Config{Level: "info", Format: "console"})

	global := flag.NewFlagSet("moviedb", flag.ExitOnError)
	baseURL := global.String("api", defaultBaseURL, "API base URL")
	grpcAddr := global.String("grpc", "", "use the gRPC server at this address instead of HTTP")
	tokenPath := global.String("token", defaultTokenPath(), "token file path")
	if err := global.Parse(os.Args[1:]); err != nil {
		logging.Fatal().Err(err).Msg("parse flags")
	}
	args := global.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	var inv invoker = &httpInvoker{client: &http.Client{Timeout: 15 * time.Second}, baseURL: *baseURL}
	if *grpcAddr != "" {
		c, err := grpcserver.Dial(*grpcAddr)
		if err != nil {
			logging.Fatal().Err(err).Str("addr", *grpcAddr).Msg("grpc dial failed")
		}
		defer c.Close()
		inv = c
	}

	ctx := context.Background()
	cmd := args[0]
	sub := ""
	if len(args) > 1 {
		sub = args[1]
	}
	rest := []string{}
	if len(args) > 2 {
		rest = args[2:]
	}

	cl := &cli{inv: inv, tokenPath: *tokenPath}
	switch cmd {
	case "auth":
		cl.handleAuth(ctx, sub, rest)
	case "movies":
		cl.handleMovies(ctx, sub, rest)
	case "stats":
		cl.print(cl.call(ctx, true, commands.GetCountStats, nil))
	case "accounts":
		cl.handleAccounts(ctx, sub, rest)
	case "dataset":
		cl.handleDataset(ctx, sub, rest)
	case "invoke":
		cl.handleInvoke(ctx, sub, rest)
	case "events":
		handleEvents(*baseURL, sub, rest)
	default:
		printUsage()
		os.Exit(1)
	}
}

type cli struct {
	inv       invoker
	tokenPath string
}

func (c *cli) call(ctx context.Context, withToken bool, command string, params any) json.RawMessage {
	token := ""
	if withToken {
		token = mustToken(c.tokenPath)
	}
	res, err := c.inv.Invoke(ctx, token, command, params)
	if err != nil {
		logging.Fatal().Str("kind", string(apperr.KindOf(err))).Msg(apperr.Message(err))
	}
	return res
}

func (c *cli) print(raw json.RawMessage) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		fmt.Println(string(raw))
		return
	}
	printJSON(v)
}

func (c *cli) handleAuth(ctx context.Context, sub string, args []string) {
	switch sub {
	case "login":
		fs := flag.NewFlagSet("auth login", flag.ExitOnError)
		username := fs.String("username", "", "username")
		password := fs.String("password", "", "password")
		_ = fs.Parse(args)

		if *username == "" || *password == "" {
			logging.Fatal().Msg("username and password are required")
		}

		raw := c.call(ctx, false, commands.LoginUser, map[string]any{
			"user": models.Credentials{Username: *username, Password: *password},
		})
		var sess models.Session
		if err := json.Unmarshal(raw, &sess); err != nil {
			logging.Fatal().Err(err).Msg("decode session")
		}
		if err := saveToken(c.tokenPath, sess.Token); err != nil {
			logging.Fatal().Err(err).Msg("save token")
		}
		fmt.Printf("logged in as %s\n", sess.Username)
	case "logout":
		c.call(ctx, false, commands.LogoutUser, nil)
		if err := clearToken(c.tokenPath); err != nil {
			logging.Fatal().Err(err).Msg("clear token")
		}
		fmt.Println("logged out")
	case "whoami":
		c.print(c.call(ctx, false, commands.GetLoggedUsername, nil))
	case "me":
		c.print(c.call(ctx, true, commands.GetCurrentUser, nil))
	default:
		logging.Fatal().Msg("usage: moviedb auth login|logout|whoami|me")
	}
}

func (c *cli) handleMovies(ctx context.Context, sub string, args []string) {
	switch sub {
	case "search":
		fs := flag.NewFlagSet("movies search", flag.ExitOnError)
		genre := fs.String("genre", "", "genre filter")
		query := fs.String("q", "", "title substring")
		filter := fs.String("sort", "None", "None|Alphabetical|Popular|Latest|TopRated")
		_ = fs.Parse(args)

		raw := c.call(ctx, true, commands.GetAllMovies, map[string]string{
			"genre": *genre, "query": *query, "filter": *filter,
		})
		var items []models.MovieShort
		if err := json.Unmarshal(raw, &items); err != nil {
			logging.Fatal().Err(err).Msg("decode movies")
		}
		for _, m := range items {
			fmt.Printf("%-8d %s\n", m.MovieID, m.Title)
		}
		fmt.Printf("%d movies\n", len(items))
	case "show":
		fs := flag.NewFlagSet("movies show", flag.ExitOnError)
		id := fs.Int64("id", 0, "movie id")
		_ = fs.Parse(args)
		c.print(c.call(ctx, true, commands.GetMovie, map[string]int64{"id": *id}))
	default:
		logging.Fatal().Msg("usage: moviedb movies search|show")
	}
}

func (c *cli) handleAccounts(ctx context.Context, sub string, args []string) {
	switch sub {
	case "create":
		fs := flag.NewFlagSet("accounts create", flag.ExitOnError)
		username := fs.String("username", "", "username")
		password := fs.String("password", "", "password")
		admin := fs.Bool("admin", false, "grant the administrator role")
		_ = fs.Parse(args)
		c.print(c.call(ctx, true, commands.CreateSQLUser, map[string]any{
			"username": *username, "password": *password, "isAdmin": *admin,
		}))
	case "list":
		c.print(c.call(ctx, true, commands.GetSQLUsers, nil))
	case "delete":
		fs := flag.NewFlagSet("accounts delete", flag.ExitOnError)
		username := fs.String("username", "", "username")
		_ = fs.Parse(args)
		c.call(ctx, true, commands.DeleteSQLUser, map[string]string{"username": *username})
		fmt.Println("deleted")
	default:
		logging.Fatal().Msg("usage: moviedb accounts create|list|delete")
	}
}

func (c *cli) handleDataset(ctx context.Context, sub string, args []string) {
	switch sub {
	case "delete-user":
		fs := flag.NewFlagSet("dataset delete-user", flag.ExitOnError)
		id := fs.Int64("id", 0, "dataset user id")
		_ = fs.Parse(args)
		c.print(c.call(ctx, true, commands.DeleteMovieLensUser, map[string]int64{"id": *id}))
	case "delete-tag":
		fs := flag.NewFlagSet("dataset delete-tag", flag.ExitOnError)
		movieID := fs.Int64("movie", 0, "movie id")
		userID := fs.Int64("user", 0, "dataset user id")
		ts := fs.Int64("ts", 0, "tag timestamp (unix seconds)")
		_ = fs.Parse(args)
		c.call(ctx, true, commands.DeleteMovieLensTag, map[string]int64{
			"movieId": *movieID, "userId": *userID, "timestamp": *ts,
		})
		fmt.Println("deleted")
	default:
		logging.Fatal().Msg("usage: moviedb dataset delete-user|delete-tag")
	}
}

// handleInvoke sends a raw command: moviedb invoke <command> ['{"json":"params"}']
func (c *cli) handleInvoke(ctx context.Context, command string, args []string) {
	if command == "" {
		logging.Fatal().Msg("usage: moviedb invoke <command> [params-json]")
	}
	var params any
	if len(args) > 0 {
		params = json.RawMessage(args[0])
	}
	token, _ := readToken(c.tokenPath)
	res, err := c.inv.Invoke(ctx, token, command, params)
	if err != nil {
		logging.Fatal().Str("kind", string(apperr.KindOf(err))).Msg(apperr.Message(err))
	}
	c.print(res)
}

func handleEvents(baseURL, sub string, args []string) {
	switch sub {
	case "listen":
		fs := flag.NewFlagSet("events listen", flag.ExitOnError)
		tcpAddr := fs.String("tcp", "", "read the plain TCP stream at this address instead of the websocket")
		pretty := fs.Bool("pretty", true, "pretty print JSON events")
		_ = fs.Parse(args)
		for {
			var err error
			if *tcpAddr != "" {
				err = runEventsTCP(*tcpAddr, *pretty)
			} else {
				var wsURL string
				if wsURL, err = websocketURL(baseURL, "/ws"); err != nil {
					logging.Fatal().Err(err).Msg("invalid base URL")
				}
				err = runWebSocket(wsURL, *pretty)
			}
			logging.Warn().Err(err).Msg("event stream disconnected")
			time.Sleep(1 * time.Second)
		}
	default:
		logging.Fatal().Msg("usage: moviedb events listen")
	}
}

func printEvent(line []byte, pretty bool) {
	if !pretty {
		fmt.Println(string(bytes.TrimSpace(line)))
		return
	}
	var obj map[string]any
	if err := json.Unmarshal(line, &obj); err != nil {
		fmt.Println(string(line))
		return
	}
	printJSON(obj)
}

func runEventsTCP(addr string, pretty bool) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	logging.Info().Str("addr", addr).Msg("connected to event stream")
	reader := bufio.NewScanner(conn)
	for reader.Scan() {
		printEvent(reader.Bytes(), pretty)
	}
	if err := reader.Err(); err != nil {
		return err
	}
	return os.ErrClosed
}

func runWebSocket(wsURL string, pretty bool) error {
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	logging.Info().Str("url", wsURL).Msg("connected to event stream")
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		printEvent(msg, pretty)
	}
}

// httpInvoker calls POST /invoke/:command and unpacks the response envelope.
type httpInvoker struct {
	client  *http.Client
	baseURL string
}

func (h *httpInvoker) Invoke(ctx context.Context, token, command string, params any) (json.RawMessage, error) {
	var body io.Reader
	if params != nil {
		b, err := json.Marshal(params)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(b)
	}
	endpoint := strings.TrimRight(h.baseURL, "/") + "/invoke/" + url.PathEscape(command)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var out commands.Response
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%s: unexpected response (%d): %s", command, resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if out.Error != nil {
		return nil, &apperr.Error{Kind: out.Error.Kind, Op: command, Message: out.Error.Message}
	}
	if out.Result == nil {
		return json.RawMessage("null"), nil
	}
	return out.Result, nil
}

func printJSON(v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		logging.Fatal().Err(err).Msg("json")
	}
	fmt.Println(string(b))
}

func defaultTokenPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./.moviedb-token.json"
	}
	return filepath.Join(home, ".moviedb", "token.json")
}

func saveToken(path, token string) error {
	if token == "" {
		return errors.New("empty token")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(tokenData{Token: token}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func readToken(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	var td tokenData
	if err := json.Unmarshal(data, &td); err != nil {
		return "", err
	}
	return strings.TrimSpace(td.Token), nil
}

func mustToken(path string) string {
	token, err := readToken(path)
	if err != nil {
		logging.Fatal().Err(err).Msg("token not found, please login")
	}
	if token == "" {
		logging.Fatal().Msg("token empty, please login")
	}
	return token
}

func clearToken(path string) error {
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return nil
}

func websocketURL(baseURL, path string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	scheme := "ws"
	if u.Scheme == "https" {
		scheme = "wss"
	}
	return (&url.URL{
		Scheme: scheme,
		Host:   u.Host,
		Path:   path,
	}).String(), nil
}

func printUsage() {
	fmt.Println("moviedb [-api URL | -grpc ADDR] [-token PATH] <command> [subcommand] [flags]")
	fmt.Println("commands:")
	fmt.Println("  auth login|logout|whoami|me")
	fmt.Println("  movies search|show")
	fmt.Println("  stats")
	fmt.Println("  accounts create|list|delete")
	fmt.Println("  dataset delete-user|delete-tag")
	fmt.Println("  invoke <command> [params-json]")
	fmt.Println("  events listen")
}
