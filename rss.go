package folio

import (
	"encoding/xml"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/folio/content"
)

type rssXML struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	Items       []rssItem `xml:"item"`
}

type rssItem struct {
	Title   string `xml:"title"`
	Link    string `xml:"link"`
	PubDate string `xml:"pubDate,omitempty"`
	GUID    string `xml:"guid"`
}

// rfc1123 converts a stored RFC 3339 timestamp to the RSS date format.
// Records without a readable timestamp get no date.
func rfc1123(ts string) string {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ""
	}
	return t.Format(time.RFC1123Z)
}

func (a *App) renderRSS(c echo.Context, projects []content.Project) error {
	base := a.Config.URL
	items := make([]rssItem, 0, len(projects))
	for _, p := range projects {
		link := BuildURL(base, "project", p.ID)
		items = append(items, rssItem{
			Title:   p.Name,
			Link:    link,
			PubDate: rfc1123(p.CreatedAt),
			GUID:    link,
		})
	}
	feed := rssXML{
		Version: "2.0",
		Channel: rssChannel{
			Title:       a.Config.Name,
			Link:        base,
			Description: a.Config.Description,
			Items:       items,
		},
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/rss+xml; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Write([]byte(xml.Header))
	return xml.NewEncoder(c.Response()).Encode(feed)
}
