package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"cinehub/internal/logging"
	"cinehub/pkg/models"
)

const defaultBaseURL = "http://localhost:5000/api"

type sessionResponse struct {
	Token string `json:"token"`
}

// listResponse covers both catalog listings; only one pair of keys is set.
type listResponse struct {
	Movies       []models.MediaItem `json:"movies"`
	TVShows      []models.MediaItem `json:"tvshows"`
	CurrentPage  int                `json:"currentPage"`
	TotalPages   int                `json:"totalPages"`
	TotalMovies  int64              `json:"totalMovies"`
	TotalTVShows int64              `json:"totalTVShows"`
}

func (r listResponse) items(kind models.Kind) []models.MediaItem {
	if kind == models.KindTVShow {
		return r.TVShows
	}
	return r.Movies
}

func main() {
	logging.Init(logging.Config{Level: "info", Format: "console"})

	global := flag.NewFlagSet("cinehub", flag.ExitOnError)
	baseURL := global.String("api", defaultBaseURL, "API base URL")
	tokenPath := global.String("token", defaultTokenPath(), "token file path")
	if err := global.Parse(os.Args[1:]); err != nil {
		fatalf("parse flags: %v", err)
	}
	args := global.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	cmd := args[0]
	sub := ""
	rest := []string{}
	if len(args) > 1 {
		sub = args[1]
		rest = args[2:]
	}

	ctx := context.Background()
	client := &apiClient{HTTP: &http.Client{Timeout: 15 * time.Second}, BaseURL: *baseURL}

	switch cmd {
	case "auth":
		handleAuth(ctx, client, *tokenPath, sub, rest)
	case "movies":
		handleCatalog(ctx, client, models.KindMovie, sub, rest)
	case "tvshows":
		handleCatalog(ctx, client, models.KindTVShow, sub, rest)
	case "reviews":
		client.Token, _ = readToken(*tokenPath)
		handleReviews(ctx, client, sub, rest)
	case "watchlist":
		client.Token = mustToken(*tokenPath)
		handleWatchlist(ctx, client, sub, rest)
	case "feed":
		client.Token, _ = readToken(*tokenPath)
		handleFeed(ctx, client, sub, rest)
	case "export":
		handleExport(ctx, client, sub, rest)
	default:
		printUsage()
		os.Exit(1)
	}
}

func handleAuth(ctx context.Context, c *apiClient, tokenPath, sub string, args []string) {
	switch sub {
	case "login":
		fs := flag.NewFlagSet("auth login", flag.ExitOnError)
		email := fs.String("email", "", "email address")
		password := fs.String("password", "", "password")
		_ = fs.Parse(args)
		if *email == "" || *password == "" {
			fatalf("email and password are required")
		}

		var resp sessionResponse
		payload := map[string]string{"email": *email, "password": *password}
		if err := c.do(ctx, http.MethodPost, "/auth/login", nil, payload, &resp); err != nil {
			fatalf("login failed: %v", err)
		}
		if err := saveToken(tokenPath, resp.Token); err != nil {
			fatalf("save token: %v", err)
		}
		fmt.Println("logged in")
	case "register":
		fs := flag.NewFlagSet("auth register", flag.ExitOnError)
		username := fs.String("username", "", "username")
		email := fs.String("email", "", "email address")
		password := fs.String("password", "", "password")
		_ = fs.Parse(args)
		if *username == "" || *email == "" || *password == "" {
			fatalf("username, email and password are required")
		}

		var resp sessionResponse
		payload := map[string]string{
			"username":        *username,
			"email":           *email,
			"password":        *password,
			"passwordConfirm": *password,
		}
		if err := c.do(ctx, http.MethodPost, "/auth/register", nil, payload, &resp); err != nil {
			fatalf("register failed: %v", err)
		}
		if err := saveToken(tokenPath, resp.Token); err != nil {
			fatalf("save token: %v", err)
		}
		fmt.Println("registered and logged in")
	case "me":
		c.Token = mustToken(tokenPath)
		var resp map[string]any
		if err := c.do(ctx, http.MethodGet, "/auth/me", nil, nil, &resp); err != nil {
			fatalf("me failed: %v", err)
		}
		printJSON(resp)
	case "logout":
		if err := clearToken(tokenPath); err != nil {
			fatalf("logout failed: %v", err)
		}
		fmt.Println("logged out")
	default:
		fatalf("usage: cinehub auth <login|register|me|logout>")
	}
}

func handleCatalog(ctx context.Context, c *apiClient, kind models.Kind, sub string, args []string) {
	path := "/" + kind.Collection()
	switch sub {
	case "list":
		fs := flag.NewFlagSet(kind.Collection()+" list", flag.ExitOnError)
		genre := fs.String("genre", "", "genre filter")
		platform := fs.String("platform", "", "platform filter")
		search := fs.String("search", "", "full-text search")
		year := fs.Int("year", 0, "release year")
		sortBy := fs.String("sort", "", "rating|release_date|title|popularity")
		page := fs.Int("page", 1, "page number")
		limit := fs.Int("limit", 20, "page size")
		_ = fs.Parse(args)

		q := url.Values{}
		for k, v := range map[string]string{"genre": *genre, "platform": *platform, "search": *search, "sort": *sortBy} {
			if v != "" {
				q.Set(k, v)
			}
		}
		if *year > 0 {
			q.Set("year", strconv.Itoa(*year))
		}
		q.Set("page", strconv.Itoa(*page))
		q.Set("limit", strconv.Itoa(*limit))

		var resp map[string]any
		if err := c.do(ctx, http.MethodGet, path, q, nil, &resp); err != nil {
			fatalf("list failed: %v", err)
		}
		printJSON(resp)
	case "show":
		fs := flag.NewFlagSet(kind.Collection()+" show", flag.ExitOnError)
		id := fs.String("id", "", "item id")
		_ = fs.Parse(args)
		if *id == "" {
			fatalf("id is required")
		}
		var resp models.MediaItem
		if err := c.do(ctx, http.MethodGet, path+"/"+url.PathEscape(*id), nil, nil, &resp); err != nil {
			fatalf("show failed: %v", err)
		}
		printJSON(resp)
	case "genres":
		var resp []string
		if err := c.do(ctx, http.MethodGet, path+"/genres", nil, nil, &resp); err != nil {
			fatalf("genres failed: %v", err)
		}
		printJSON(resp)
	case "random":
		fs := flag.NewFlagSet(kind.Collection()+" random", flag.ExitOnError)
		limit := fs.Int("limit", 10, "sample size")
		_ = fs.Parse(args)
		var resp []models.MediaItem
		q := url.Values{"limit": {strconv.Itoa(*limit)}}
		if err := c.do(ctx, http.MethodGet, path+"/random", q, nil, &resp); err != nil {
			fatalf("random failed: %v", err)
		}
		printJSON(resp)
	default:
		fatalf("usage: cinehub %s <list|show|genres|random>", kind.Collection())
	}
}

func handleReviews(ctx context.Context, c *apiClient, sub string, args []string) {
	switch sub {
	case "list":
		fs := flag.NewFlagSet("reviews list", flag.ExitOnError)
		item := fs.String("item", "", "movie or TV show id (all reviews when empty)")
		sortBy := fs.String("sort", "date", "date|rating|likes")
		page := fs.Int("page", 1, "page number")
		_ = fs.Parse(args)

		path := "/reviews"
		q := url.Values{"page": {strconv.Itoa(*page)}}
		if *item != "" {
			path += "/movie/" + url.PathEscape(*item)
			q.Set("sortBy", *sortBy)
		}
		var resp map[string]any
		if err := c.do(ctx, http.MethodGet, path, q, nil, &resp); err != nil {
			fatalf("list failed: %v", err)
		}
		printJSON(resp)
	case "mine":
		requireToken(c)
		var resp map[string]any
		if err := c.do(ctx, http.MethodGet, "/reviews/user/my-reviews", nil, nil, &resp); err != nil {
			fatalf("list failed: %v", err)
		}
		printJSON(resp)
	case "post":
		requireToken(c)
		fs := flag.NewFlagSet("reviews post", flag.ExitOnError)
		item := fs.String("item", "", "movie or TV show id")
		itemType := fs.String("type", "Movie", "Movie|TVShow")
		text := fs.String("text", "", "review text")
		rating := fs.Int("rating", 0, "rating 1-5")
		_ = fs.Parse(args)

		payload := map[string]any{"movieId": *item, "itemType": *itemType, "text": *text, "rating": *rating}
		var resp map[string]any
		if err := c.do(ctx, http.MethodPost, "/reviews", nil, payload, &resp); err != nil {
			fatalf("post failed: %v", err)
		}
		printJSON(resp)
	case "edit":
		requireToken(c)
		fs := flag.NewFlagSet("reviews edit", flag.ExitOnError)
		id := fs.String("id", "", "review id")
		text := fs.String("text", "", "new text")
		rating := fs.Int("rating", 0, "new rating 1-5")
		_ = fs.Parse(args)

		var resp map[string]any
		payload := map[string]any{"text": *text, "rating": *rating}
		if err := c.do(ctx, http.MethodPut, "/reviews/"+url.PathEscape(*id), nil, payload, &resp); err != nil {
			fatalf("edit failed: %v", err)
		}
		printJSON(resp)
	case "delete":
		requireToken(c)
		fs := flag.NewFlagSet("reviews delete", flag.ExitOnError)
		id := fs.String("id", "", "review id")
		_ = fs.Parse(args)

		var resp map[string]any
		if err := c.do(ctx, http.MethodDelete, "/reviews/"+url.PathEscape(*id), nil, nil, &resp); err != nil {
			fatalf("delete failed: %v", err)
		}
		printJSON(resp)
	case "like", "dislike":
		requireToken(c)
		fs := flag.NewFlagSet("reviews "+sub, flag.ExitOnError)
		id := fs.String("id", "", "review id")
		_ = fs.Parse(args)

		var resp map[string]any
		if err := c.do(ctx, http.MethodPatch, "/reviews/"+url.PathEscape(*id)+"/rate", nil, map[string]string{"type": sub}, &resp); err != nil {
			fatalf("vote failed: %v", err)
		}
		printJSON(resp)
	default:
		fatalf("usage: cinehub reviews <list|mine|post|edit|delete|like|dislike>")
	}
}

func handleWatchlist(ctx context.Context, c *apiClient, sub string, args []string) {
	switch sub {
	case "add", "remove":
		fs := flag.NewFlagSet("watchlist "+sub, flag.ExitOnError)
		item := fs.String("item", "", "item id")
		itemType := fs.String("type", "movie", "movie|tv")
		title := fs.String("title", "", "title")
		poster := fs.String("poster", "", "poster URL")
		_ = fs.Parse(args)

		method := http.MethodPost
		payload := map[string]string{"itemId": *item, "itemType": *itemType}
		if sub == "remove" {
			method = http.MethodDelete
		} else {
			payload["title"] = *title
			payload["poster"] = *poster
		}
		var resp map[string]any
		if err := c.do(ctx, method, "/auth/watchlist", nil, payload, &resp); err != nil {
			fatalf("%s failed: %v", sub, err)
		}
		printJSON(resp)
	case "list":
		var resp map[string]any
		if err := c.do(ctx, http.MethodGet, "/auth/watchlist", nil, nil, &resp); err != nil {
			fatalf("list failed: %v", err)
		}
		printJSON(resp)
	default:
		fatalf("usage: cinehub watchlist <add|remove|list>")
	}
}

type meResponse struct {
	Data struct {
		User models.User `json:"user"`
	} `json:"data"`
}

func handleFeed(ctx context.Context, c *apiClient, sub string, args []string) {
	switch sub {
	case "tcp":
		fs := flag.NewFlagSet("feed tcp", flag.ExitOnError)
		addr := fs.String("addr", "127.0.0.1:7070", "TCP feed address")
		pretty := fs.Bool("pretty", true, "pretty print JSON events")
		_ = fs.Parse(args)
		for {
			if err := followTCP(*addr, *pretty, os.Stdout); err != nil {
				logging.Warn().Err(err).Msg("feed disconnected")
			}
			time.Sleep(time.Second)
		}
	case "ws":
		fs := flag.NewFlagSet("feed ws", flag.ExitOnError)
		wsURL := fs.String("ws", "", "WebSocket URL (defaults to /ws on the API host)")
		pretty := fs.Bool("pretty", true, "pretty print JSON events")
		_ = fs.Parse(args)

		endpoint := *wsURL
		if endpoint == "" {
			var err error
			if endpoint, err = websocketURL(c.BaseURL, "/ws"); err != nil {
				fatalf("ws url: %v", err)
			}
		}
		if err := followWS(endpoint, *pretty, os.Stdout); err != nil {
			fatalf("feed failed: %v", err)
		}
	case "votes":
		fs := flag.NewFlagSet("feed votes", flag.ExitOnError)
		addr := fs.String("addr", "127.0.0.1:7071", "UDP notify address")
		pretty := fs.Bool("pretty", true, "pretty print JSON events")
		_ = fs.Parse(args)

		requireToken(c)
		var me meResponse
		if err := c.do(ctx, http.MethodGet, "/auth/me", nil, nil, &me); err != nil {
			fatalf("me failed: %v", err)
		}
		if err := followVotes(*addr, me.Data.User.ID.Hex(), *pretty, os.Stdout); err != nil {
			fatalf("feed failed: %v", err)
		}
	default:
		fatalf("usage: cinehub feed <tcp|ws|votes>")
	}
}

func handleExport(ctx context.Context, c *apiClient, sub string, args []string) {
	fs := flag.NewFlagSet("export "+sub, flag.ExitOnError)
	kindName := fs.String("kind", "movies", "movies|tvshows")
	out := fs.String("out", "", "output path (default data/<kind>.<format>)")
	limit := fs.Int("limit", 200, "max items to export")
	_ = fs.Parse(args)

	kind, ok := models.ParseKind(*kindName)
	if !ok {
		fatalf("unknown kind %q", *kindName)
	}
	path := *out
	if path == "" {
		path = "data/" + kind.Collection() + "." + sub
	}

	items, err := fetchCatalog(ctx, c, kind, *limit)
	if err != nil {
		fatalf("export failed: %v", err)
	}

	switch sub {
	case "json":
		err = writeJSON(path, items)
	case "csv":
		err = writeCSVFile(path, kind, items)
	default:
		fatalf("usage: cinehub export <json|csv>")
	}
	if err != nil {
		fatalf("write %s: %v", path, err)
	}
	logging.Info().Int("items", len(items)).Str("out", path).Msg("exported")
}

func requireToken(c *apiClient) {
	if c.Token == "" {
		fatalf("token not found, please login")
	}
}

func mustToken(path string) string {
	token, err := readToken(path)
	if err != nil {
		fatalf("token not found, please login: %v", err)
	}
	if token == "" {
		fatalf("token empty, please login")
	}
	return token
}

func printJSON(v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fatalf("json: %v", err)
	}
	fmt.Println(string(b))
}

func fatalf(format string, args ...any) {
	logging.Fatal().Msgf(format, args...)
}

func printUsage() {
	fmt.Println("cinehub <command> [subcommand] [flags]")
	fmt.Println("commands:")
	fmt.Println("  auth login|register|me|logout")
	fmt.Println("  movies list|show|genres|random")
	fmt.Println("  tvshows list|show|genres|random")
	fmt.Println("  reviews list|mine|post|edit|delete|like|dislike")
	fmt.Println("  watchlist add|remove|list")
	fmt.Println("  feed tcp|ws|votes")
	fmt.Println("  export json|csv")
}
