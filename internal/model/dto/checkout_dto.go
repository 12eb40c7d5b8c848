package dto

type CheckoutReturnRequest struct {
	Status    string `form:"status" binding:"required,oneof=success cancel"`
	SessionID string `form:"session_id" binding:"required"`
}

type CheckoutReturnResponse struct {
	Outcome     string `json:"outcome"`
	OrderStatus string `json:"order_status"`
	SiteStatus  string `json:"site_status"`
	CustomURL   string `json:"custom_url"`
	SiteURL     string `json:"site_url"`
}
