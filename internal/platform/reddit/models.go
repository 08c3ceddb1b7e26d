package reddit

import "encoding/json"

// Wire types for the subset of the Reddit API the bot uses. Listings nest
// kind/data envelopes; only the fields read by the checker are declared.

type thing struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

type listingData struct {
	Children []thing `json:"children"`
}

type postData struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	URL           string  `json:"url"`
	SelfText      string  `json:"selftext"`
	IsSelf        bool    `json:"is_self"`
	LinkFlairText *string `json:"link_flair_text"`
	CreatedUTC    float64 `json:"created_utc"`
}

type commentData struct {
	Body        string `json:"body"`
	IsSubmitter bool   `json:"is_submitter"`
}

type wikiPageData struct {
	ContentMD string `json:"content_md"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// commentPostResponse is the envelope returned by POST /api/comment.
type commentPostResponse struct {
	JSON struct {
		Errors [][]any `json:"errors"`
		Data   struct {
			Things []struct {
				Kind string `json:"kind"`
				Data struct {
					Name string `json:"name"` // fullname of the new comment, t1_*
				} `json:"data"`
			} `json:"things"`
		} `json:"data"`
	} `json:"json"`
}
