package chathandler

type HistoryQuery struct {
	// Limit keeps only the newest N messages; 0 returns the whole window.
	Limit int `form:"limit,default=0" binding:"gte=0,lte=1000"`
} // @name HistoryQuery

type UploadResponse struct {
	URL string `json:"url" example:"http://localhost:8085/uploads/6f1c2a9e-0b7d-4c59-9a4e-1f2b3c4d5e6f"`
} // @name UploadResponse

type ErrorResponse struct {
	Error string `json:"error"`
} // @name ErrorResponse
