package dto

type CreatePostRequest struct {
	Title   string  `json:"title"`
	Content string  `json:"content"`
	Type    string  `json:"type"`
	Status  string  `json:"status"`
	Date    *string `json:"date,omitempty"`
	Time    *string `json:"time,omitempty"`
	Image   *string `json:"image,omitempty"`
}
