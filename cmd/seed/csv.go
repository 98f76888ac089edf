package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"cinehub/pkg/models"
)

const dateLayout = "2006-01-02"

// readItems parses a catalog CSV. Columns are matched by header name; rows
// without a title are skipped. List columns are separated by "|".
func readItems(in io.Reader, kind models.Kind) ([]models.MediaItem, error) {
	r := csv.NewReader(in)
	r.FieldsPerRecord = -1

	header, err := readHeader(r)
	if err != nil {
		return nil, err
	}

	var items []models.MediaItem
	line := 1
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line++
		if len(row) == 0 {
			continue
		}

		m, err := parseRow(header, row, kind)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if m.Title == "" {
			continue
		}
		items = append(items, m)
	}
	return items, nil
}

func parseRow(header map[string]int, row []string, kind models.Kind) (models.MediaItem, error) {
	get := func(key string) string { return valueAt(header, row, key) }

	m := models.MediaItem{
		Kind:             kind,
		Title:            get("title"),
		OriginalTitle:    get("original_title"),
		Overview:         get("overview"),
		Genre:            splitList(get("genres")),
		Poster:           get("poster"),
		Backdrop:         get("backdrop"),
		Status:           get("status"),
		OriginalLanguage: get("original_language"),
		ImdbID:           get("imdb_id"),
		TmdbID:           get("tmdb_id"),
	}
	for _, name := range splitList(get("platforms")) {
		m.Platforms = append(m.Platforms, models.Platform{Name: name, Available: true})
	}
	for _, name := range splitList(get("cast")) {
		m.Cast = append(m.Cast, models.CastMember{Name: name})
	}

	var err error
	if m.Popularity, err = parseFloat(get("popularity")); err != nil {
		return m, fmt.Errorf("popularity: %w", err)
	}

	switch kind {
	case models.KindTVShow:
		if m.FirstAirDate, err = parseDate(get("first_air_date")); err != nil {
			return m, fmt.Errorf("first_air_date: %w", err)
		}
		if m.LastAirDate, err = parseDate(get("last_air_date")); err != nil {
			return m, fmt.Errorf("last_air_date: %w", err)
		}
		if m.NumberOfSeasons, err = parseInt(get("number_of_seasons")); err != nil {
			return m, fmt.Errorf("number_of_seasons: %w", err)
		}
		if m.NumberOfEpisodes, err = parseInt(get("number_of_episodes")); err != nil {
			return m, fmt.Errorf("number_of_episodes: %w", err)
		}
		m.Creators = splitList(get("creators"))
		m.Networks = splitList(get("networks"))
		m.Type = get("type")
	default:
		if m.ReleaseDate, err = parseDate(get("release_date")); err != nil {
			return m, fmt.Errorf("release_date: %w", err)
		}
		if m.Duration, err = parseInt(get("duration")); err != nil {
			return m, fmt.Errorf("duration: %w", err)
		}
		m.Director = splitList(get("director"))
	}
	return m, nil
}

func readHeader(r *csv.Reader) (map[string]int, error) {
	row, err := r.Read()
	if err != nil {
		return nil, err
	}
	header := make(map[string]int, len(row))
	for idx, name := range row {
		header[strings.TrimSpace(strings.ToLower(name))] = idx
	}
	return header, nil
}

func valueAt(header map[string]int, row []string, key string) string {
	idx, ok := header[key]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(raw, "|") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseInt(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func parseFloat(raw string) (float64, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseFloat(raw, 64)
}

func parseDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
