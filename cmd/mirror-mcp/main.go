package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/use-agent/mirror/models"
)

// envelope is the body of every mirror API response.
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// crawlOptions are the request fields shared by crawl_url and batch_crawl.
type crawlOptions struct {
	Timeout   int    `json:"timeout,omitempty"`
	Cookies   string `json:"cookies,omitempty"`
	FetchMode string `json:"fetch_mode,omitempty"`
	Format    string `json:"format,omitempty"`
}

type crawlRequest struct {
	URL string `json:"url"`
	crawlOptions
}

type batchRequest struct {
	URLs []string `json:"urls"`
	crawlOptions
}

func main() {
	apiURL := strings.TrimRight(os.Getenv("MIRROR_API_URL"), "/")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:3001"
	}
	// Only needed when the server runs with MIRROR_AUTH_ENABLED.
	apiKey := os.Getenv("MIRROR_API_KEY")

	s := server.NewMCPServer(
		"mirror",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	crawlURLTool := mcp.NewTool("crawl_url",
		mcp.WithDescription("Crawl one page in a headless browser and return its title, author, body text, images, videos and publish time. Understands Zhihu, Xiaohongshu, X/Twitter and WeChat articles; other sites use a generic extractor."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The URL of the page to crawl"),
		),
		mcp.WithNumber("timeout",
			mcp.Description("Per-phase timeout in milliseconds (default: 30000)"),
		),
		mcp.WithString("cookies",
			mcp.Description("Cookie header string such as 'a=1; b=2', for pages behind a login"),
		),
		mcp.WithString("format",
			mcp.Description("Content format: 'text' (default) or 'markdown'"),
			mcp.Enum(models.FormatText, models.FormatMarkdown),
		),
		mcp.WithString("fetch_mode",
			mcp.Description("'browser' (default, renders JavaScript) or 'http' (plain GET, faster)"),
			mcp.Enum(models.FetchModeBrowser, models.FetchModeHTTP),
		),
	)
	s.AddTool(crawlURLTool, handleCrawlURL(apiURL, apiKey))

	batchCrawlTool := mcp.NewTool("batch_crawl",
		mcp.WithDescription(fmt.Sprintf("Crawl up to %d pages in parallel. Each URL gets its own result, failures included.", models.MaxBatchURLs)),
		mcp.WithArray("urls",
			mcp.Required(),
			mcp.Description("List of URLs to crawl"),
		),
		mcp.WithNumber("timeout",
			mcp.Description("Per-phase timeout in milliseconds for every URL (default: 30000)"),
		),
		mcp.WithString("cookies",
			mcp.Description("Cookie header string applied to every URL"),
		),
		mcp.WithString("format",
			mcp.Description("Content format: 'text' (default) or 'markdown'"),
			mcp.Enum(models.FormatText, models.FormatMarkdown),
		),
		mcp.WithString("fetch_mode",
			mcp.Description("'browser' (default) or 'http'"),
			mcp.Enum(models.FetchModeBrowser, models.FetchModeHTTP),
		),
	)
	s.AddTool(batchCrawlTool, handleBatchCrawl(apiURL, apiKey))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

// apiPost sends a JSON POST to the mirror API and unwraps the envelope.
func apiPost(ctx context.Context, client *http.Client, apiURL, apiKey, path string, payload any) (*envelope, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("parse response (HTTP %d): %w", resp.StatusCode, err)
	}
	if env.Code != http.StatusOK {
		return nil, fmt.Errorf("%s", env.Message)
	}
	return &env, nil
}

func readOptions(request mcp.CallToolRequest) crawlOptions {
	opts := crawlOptions{
		Cookies:   request.GetString("cookies", ""),
		FetchMode: request.GetString("fetch_mode", ""),
		Format:    request.GetString("format", ""),
	}
	// JSON numbers arrive as float64.
	if v, ok := request.GetArguments()["timeout"].(float64); ok && v > 0 {
		opts.Timeout = int(v)
	}
	return opts
}

func handleCrawlURL(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 300 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		env, err := apiPost(ctx, client, apiURL, apiKey, "/crawl", crawlRequest{URL: url, crawlOptions: readOptions(request)})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("crawl failed: %v", err)), nil
		}

		var res models.CrawlResult
		if err := json.Unmarshal(env.Data, &res); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse result: %v", err)), nil
		}
		return mcp.NewToolResultText(formatResult(&res)), nil
	}
}

func handleBatchCrawl(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 600 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		urls, err := request.RequireStringSlice("urls")
		if err != nil {
			return mcp.NewToolResultError("urls is required and must be an array of strings"), nil
		}

		env, err := apiPost(ctx, client, apiURL, apiKey, "/crawl/batch", batchRequest{URLs: urls, crawlOptions: readOptions(request)})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("batch crawl failed: %v", err)), nil
		}

		var results []models.CrawlResult
		if err := json.Unmarshal(env.Data, &results); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse results: %v", err)), nil
		}

		var sb strings.Builder
		succeeded := 0
		for i := range results {
			if results[i].Success {
				succeeded++
			}
		}
		fmt.Fprintf(&sb, "Crawled %d/%d pages\n", succeeded, len(results))
		for i := range results {
			fmt.Fprintf(&sb, "\n=== [%d] %s ===\n", i+1, results[i].URL)
			sb.WriteString(formatResult(&results[i]))
			sb.WriteString("\n")
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

// formatResult renders a result as a metadata header followed by the body.
func formatResult(r *models.CrawlResult) string {
	if !r.Success {
		return "Error: " + r.Error
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Title: %s\nPlatform: %s\nSource: %s\n", r.Title, r.Platform, r.URL)
	if r.Author != "" {
		fmt.Fprintf(&sb, "Author: %s\n", r.Author)
	}
	if r.PublishedAt != "" {
		fmt.Fprintf(&sb, "Published: %s\n", r.PublishedAt)
	}
	sb.WriteString("\n")
	sb.WriteString(r.Content)

	if len(r.Images) > 0 {
		sb.WriteString("\n\nImages:\n")
		for _, u := range r.Images {
			sb.WriteString("- " + u + "\n")
		}
	}
	if len(r.Videos) > 0 {
		sb.WriteString("\nVideos:\n")
		for _, u := range r.Videos {
			sb.WriteString("- " + u + "\n")
		}
	}
	return sb.String()
}
