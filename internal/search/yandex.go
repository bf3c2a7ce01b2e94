package search

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"answerapi/internal/config"
)

// yandexNoResults is the engine error code for "nothing found".
const yandexNoResults = "15"

const maxErrorBody = 512

var markupRe = regexp.MustCompile(`<[^>]+>`)

type yandexQuery struct {
	SearchType  string `json:"searchType"`
	QueryText   string `json:"queryText"`
	FamilyMode  string `json:"familyMode"`
	Page        int    `json:"page"`
	FixTypoMode string `json:"fixTypoMode"`
}

type yandexSortSpec struct {
	SortMode  string `json:"sortMode"`
	SortOrder string `json:"sortOrder"`
}

type yandexGroupSpec struct {
	GroupMode    string `json:"groupMode"`
	GroupsOnPage int    `json:"groupsOnPage"`
	DocsInGroup  int    `json:"docsInGroup"`
}

type yandexRequest struct {
	Query          yandexQuery     `json:"query"`
	SortSpec       yandexSortSpec  `json:"sortSpec"`
	GroupSpec      yandexGroupSpec `json:"groupSpec"`
	MaxPassages    int             `json:"maxPassages"`
	Region         int             `json:"region"`
	L10N           string          `json:"l10N"`
	FolderID       string          `json:"folderId"`
	ResponseFormat string          `json:"responseFormat"`
	UserAgent      string          `json:"userAgent"`
}

type yandexResponse struct {
	Results []struct {
		URL      string   `json:"url"`
		Title    string   `json:"title"`
		Passages []string `json:"passages"`
	} `json:"results"`
	RawData string `json:"rawData"`
}

type markup struct {
	Inner string `xml:",innerxml"`
}

func (m markup) text() string {
	return strings.TrimSpace(html.UnescapeString(markupRe.ReplaceAllString(m.Inner, "")))
}

type yandexXML struct {
	XMLName  xml.Name `xml:"yandexsearch"`
	Response struct {
		Error *struct {
			Code    string `xml:"code,attr"`
			Message string `xml:",chardata"`
		} `xml:"error"`
		Groups []struct {
			Docs []struct {
				URL      string   `xml:"url"`
				Title    markup   `xml:"title"`
				Passages []markup `xml:"passages>passage"`
			} `xml:"doc"`
		} `xml:"results>grouping>group"`
	} `xml:"response"`
}

// yandexSearcher implements Searcher on top of the Yandex Search API.
// It is safe for concurrent use by multiple goroutines.
type yandexSearcher struct {
	client   *http.Client
	endpoint string
	apiKey   string
	folderID string
	region   int
	lang     string
	limit    int
}

// NewYandex creates a Yandex backed Searcher. When client is nil a traced client with
// cfg.Timeout is used.
func NewYandex(cfg config.SearchConfig, client *http.Client) (Searcher, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("search endpoint is required")
	}
	if _, err := url.ParseRequestURI(cfg.Endpoint); err != nil {
		return nil, fmt.Errorf("invalid search endpoint: %w", err)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("search api key is required")
	}
	if cfg.MaxSources <= 0 {
		return nil, fmt.Errorf("search max sources must be positive")
	}

	if client == nil {
		client = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}

	return &yandexSearcher{
		client:   client,
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		folderID: cfg.FolderID,
		region:   cfg.Region,
		lang:     cfg.Language,
		limit:    cfg.MaxSources,
	}, nil
}

func (y *yandexSearcher) Search(ctx context.Context, query string) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	payload, err := json.Marshal(y.buildRequest(query))
	if err != nil {
		return nil, fmt.Errorf("encode search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, y.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Authorization", "Api-Key "+y.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := y.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read search response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return nil, fmt.Errorf("%w: %d %s", ErrUnexpectedStatus, resp.StatusCode, string(body))
	}

	results, err := y.decode(body)
	if err != nil {
		return nil, err
	}
	return y.filter(results), nil
}

func (y *yandexSearcher) buildRequest(query string) yandexRequest {
	return yandexRequest{
		Query: yandexQuery{
			SearchType:  "web",
			QueryText:   query,
			FamilyMode:  "false",
			Page:        0,
			FixTypoMode: "true",
		},
		SortSpec: yandexSortSpec{
			SortMode:  "rlv",
			SortOrder: "desc",
		},
		GroupSpec: yandexGroupSpec{
			GroupMode:    "flat",
			GroupsOnPage: y.limit,
			DocsInGroup:  1,
		},
		MaxPassages:    3,
		Region:         y.region,
		L10N:           y.lang,
		FolderID:       y.folderID,
		ResponseFormat: "json",
	}
}

func (y *yandexSearcher) decode(body []byte) ([]Result, error) {
	var jr yandexResponse
	if err := json.Unmarshal(body, &jr); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	if jr.RawData == "" {
		results := make([]Result, 0, len(jr.Results))
		for _, r := range jr.Results {
			results = append(results, Result{URL: r.URL, Title: r.Title, Passages: r.Passages})
		}
		return results, nil
	}

	raw, err := base64.StdEncoding.DecodeString(jr.RawData)
	if err != nil {
		return nil, fmt.Errorf("decode search raw data: %w", err)
	}
	return decodeXML(raw)
}

func decodeXML(raw []byte) ([]Result, error) {
	var doc yandexXML
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode search xml: %w", err)
	}

	if e := doc.Response.Error; e != nil {
		if e.Code == yandexNoResults {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: code %s: %s", ErrEngine, e.Code, strings.TrimSpace(e.Message))
	}

	var results []Result
	for _, g := range doc.Response.Groups {
		for _, d := range g.Docs {
			r := Result{URL: strings.TrimSpace(d.URL), Title: d.Title.text()}
			for _, p := range d.Passages {
				r.Passages = append(r.Passages, p.text())
			}
			results = append(results, r)
		}
	}
	return results, nil
}

// filter drops results without an absolute http(s) URL and caps the list.
func (y *yandexSearcher) filter(results []Result) []Result {
	out := make([]Result, 0, min(len(results), y.limit))
	for _, r := range results {
		if len(out) == y.limit {
			break
		}
		u, err := url.Parse(strings.TrimSpace(r.URL))
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			continue
		}
		r.URL = u.String()
		out = append(out, r)
	}
	return out
}
