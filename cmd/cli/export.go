package main

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"

	"cinehub/pkg/models"
)

const exportPageSize = 100

// fetchCatalog pages through /movies or /tvshows until limit items are read
// or the listing runs out.
func fetchCatalog(ctx context.Context, c *apiClient, kind models.Kind, limit int) ([]models.MediaItem, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be > 0")
	}

	var out []models.MediaItem
	for page := 1; len(out) < limit; page++ {
		size := min(exportPageSize, limit-len(out))
		q := url.Values{}
		q.Set("page", strconv.Itoa(page))
		q.Set("limit", strconv.Itoa(size))

		var resp listResponse
		if err := c.do(ctx, http.MethodGet, "/"+kind.Collection(), q, nil, &resp); err != nil {
			return nil, err
		}
		items := resp.items(kind)
		out = append(out, items...)
		if len(items) == 0 || page >= resp.TotalPages {
			break
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func writeJSON(path string, items []models.MediaItem) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// writeCSV uses the same columns cmd/seed reads back.
func writeCSV(w io.Writer, kind models.Kind, items []models.MediaItem) error {
	cw := csv.NewWriter(w)
	dateCol := "release_date"
	if kind == models.KindTVShow {
		dateCol = "first_air_date"
	}
	if err := cw.Write([]string{"id", "title", "overview", "genres", dateCol, "poster", "backdrop", "rating", "vote_count", "popularity"}); err != nil {
		return err
	}
	for _, m := range items {
		m.Kind = kind
		date := ""
		if d := m.Date(); d != nil {
			date = d.Format("2006-01-02")
		}
		if err := cw.Write([]string{
			m.ID.Hex(),
			m.Title,
			m.Overview,
			strings.Join(m.Genre, "|"),
			date,
			m.Poster,
			m.Backdrop,
			strconv.FormatFloat(m.Rating, 'f', 1, 64),
			strconv.Itoa(m.VoteCount),
			strconv.FormatFloat(m.Popularity, 'f', -1, 64),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeCSVFile(path string, kind models.Kind, items []models.MediaItem) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return writeCSV(f, kind, items)
}

// followTCP prints feed events from the line-delimited TCP feed until the
// connection drops.
func followTCP(addr string, pretty bool, w io.Writer) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	sc := bufio.NewScanner(conn)
	for sc.Scan() {
		printEvent(w, sc.Bytes(), pretty)
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return io.EOF
}

// followVotes registers userID with the UDP notify server and prints every
// datagram it receives.
func followVotes(addr, userID string, pretty bool, w io.Writer) error {
	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return err
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	reg, err := json.Marshal(map[string]string{"type": "register", "user_id": userID})
	if err != nil {
		return err
	}
	if _, err := conn.Write(reg); err != nil {
		return err
	}

	buf := make([]byte, 2048)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			return err
		}
		printEvent(w, buf[:n], pretty)
	}
}

func followWS(wsURL string, pretty bool, w io.Writer) error {
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		printEvent(w, msg, pretty)
	}
}

func printEvent(w io.Writer, line []byte, pretty bool) {
	if !pretty {
		fmt.Fprintln(w, string(line))
		return
	}
	var obj map[string]any
	if err := json.Unmarshal(line, &obj); err != nil {
		fmt.Fprintln(w, string(line))
		return
	}
	b, _ := json.MarshalIndent(obj, "", "  ")
	fmt.Fprintln(w, string(b))
}
