package instagram

// Typed Instagram web API responses. Only the fields the pipeline reads are
// declared; they are validated once at the network boundary.

// LoginResponse is the login ajax endpoint's response
type LoginResponse struct {
	Authenticated bool   `json:"authenticated"`
	User          bool   `json:"user"`
	UserID        string `json:"userId"`
	Status        string `json:"status"`
	Message       string `json:"message"`
}

// MediaResponse wraps the shortcode media GraphQL query
type MediaResponse struct {
	Data struct {
		ShortcodeMedia *ShortcodeMedia `json:"shortcode_media"`
	} `json:"data"`
	Status string `json:"status"`
}

type ShortcodeMedia struct {
	ID                 string       `json:"id"`
	Shortcode          string       `json:"shortcode"`
	IsVideo            bool         `json:"is_video"`
	TakenAtTimestamp   int64        `json:"taken_at_timestamp"`
	VideoViewCount     int64        `json:"video_view_count"`
	Owner              Owner        `json:"owner"`
	EdgeMediaToCaption CaptionEdges `json:"edge_media_to_caption"`
	EdgeLikedBy        CountEdge    `json:"edge_media_preview_like"`
	EdgeParentComment  CommentEdges `json:"edge_media_to_parent_comment"`
}

type Owner struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
}

type CaptionEdges struct {
	Edges []struct {
		Node struct {
			Text string `json:"text"`
		} `json:"node"`
	} `json:"edges"`
}

type CountEdge struct {
	Count int64 `json:"count"`
}

// CommentsResponse wraps the paginated parent-comment query
type CommentsResponse struct {
	Data struct {
		ShortcodeMedia *struct {
			EdgeParentComment CommentEdges `json:"edge_media_to_parent_comment"`
		} `json:"shortcode_media"`
	} `json:"data"`
	Status string `json:"status"`
}

// RepliesResponse wraps the threaded-replies query for one parent comment
type RepliesResponse struct {
	Data struct {
		Comment *struct {
			EdgeThreadedComments CommentEdges `json:"edge_threaded_comments"`
		} `json:"comment"`
	} `json:"data"`
	Status string `json:"status"`
}

type CommentEdges struct {
	Count    int64         `json:"count"`
	PageInfo PageInfo      `json:"page_info"`
	Edges    []CommentEdge `json:"edges"`
}

type CommentEdge struct {
	Node CommentNode `json:"node"`
}

type CommentNode struct {
	ID                   string        `json:"id"`
	Text                 string        `json:"text"`
	CreatedAt            int64         `json:"created_at"`
	Owner                Owner         `json:"owner"`
	EdgeLikedBy          CountEdge     `json:"edge_liked_by"`
	EdgeThreadedComments *CommentEdges `json:"edge_threaded_comments,omitempty"`
}

type PageInfo struct {
	HasNextPage bool   `json:"has_next_page"`
	EndCursor   string `json:"end_cursor"`
}

// ProfileResponse wraps the web profile info endpoint
type ProfileResponse struct {
	Data struct {
		User *ProfileUser `json:"user"`
	} `json:"data"`
	Status string `json:"status"`
}

type ProfileUser struct {
	ID                       string    `json:"id"`
	Username                 string    `json:"username"`
	FullName                 string    `json:"full_name"`
	EdgeFollowedBy           CountEdge `json:"edge_followed_by"`
	EdgeOwnerToTimelineMedia struct {
		Count    int64      `json:"count"`
		PageInfo PageInfo   `json:"page_info"`
		Edges    []PostEdge `json:"edges"`
	} `json:"edge_owner_to_timeline_media"`
}

type PostEdge struct {
	Node PostNode `json:"node"`
}

type PostNode struct {
	ID               string `json:"id"`
	Shortcode        string `json:"shortcode"`
	IsVideo          bool   `json:"is_video"`
	TakenAtTimestamp int64  `json:"taken_at_timestamp"`
}
