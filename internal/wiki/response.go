package wiki

import (
	"bytes"

	"github.com/goccy/go-json"
)

// apiResponse is the formatversion=2 JSON envelope of api.php.
type apiResponse struct {
	Continue map[string]json.RawMessage `json:"continue"`
	Query    *apiQuery                  `json:"query"`
	Error    *apiError                  `json:"error"`
}

type apiError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

type apiQuery struct {
	Normalized []apiRedirect  `json:"normalized"`
	Redirects  []apiRedirect  `json:"redirects"`
	Pages      []apiPage      `json:"pages"`
	Search     []apiSearchHit `json:"search"`
}

type apiRedirect struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type apiPage struct {
	Title     string        `json:"title"`
	Missing   bool          `json:"missing"`
	Invalid   bool          `json:"invalid"`
	Revisions []apiRevision `json:"revisions"`
	Extract   string        `json:"extract"`
	Thumbnail *apiThumbnail `json:"thumbnail"`
}

type apiRevision struct {
	Slots struct {
		Main struct {
			Content string `json:"content"`
		} `json:"main"`
	} `json:"slots"`
}

type apiThumbnail struct {
	Source string `json:"source"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type apiSearchHit struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// continueParams flattens the continue object into request parameters.
// Values are strings or numbers depending on the module that set them.
func (r *apiResponse) continueParams() map[string]string {
	if len(r.Continue) == 0 {
		return nil
	}
	params := make(map[string]string, len(r.Continue))
	for key, raw := range r.Continue {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			params[key] = s
			continue
		}
		params[key] = string(bytes.TrimSpace(raw))
	}
	return params
}

// result converts the response into a Result for the given kind.
func (r *apiResponse) result(kind Kind) *Result {
	res := &Result{Continue: r.continueParams()}
	if r.Query == nil {
		return res
	}

	for _, n := range r.Query.Normalized {
		res.Redirects = append(res.Redirects, Redirect(n))
	}
	for _, rd := range r.Query.Redirects {
		res.Redirects = append(res.Redirects, Redirect(rd))
	}

	res.Pages = make([]RemotePage, 0, len(r.Query.Pages))
	for _, p := range r.Query.Pages {
		rp := RemotePage{Title: p.Title, Missing: p.Missing || p.Invalid}
		switch kind {
		case KindSidebar:
			if len(p.Revisions) > 0 {
				rp.Sidebar = p.Revisions[0].Slots.Main.Content
			}
		case KindSummary:
			rp.Summary = htmlToText(p.Extract)
		case KindThumbnail:
			if p.Thumbnail != nil {
				rp.Thumbnail = p.Thumbnail.Source
			}
		}
		res.Pages = append(res.Pages, rp)
	}
	return res
}
