package domain

// Company is the issuer information printed on receipt headers,
// fetched from the backend's my-company endpoint.
type Company struct {
	Name      string `json:"name"`
	TradeName string `json:"trade_name,omitempty"`
	CNPJ      string `json:"cnpj,omitempty"`
	Address   string `json:"address,omitempty"`
	City      string `json:"city,omitempty"`
	State     string `json:"state,omitempty"`
	Phone     string `json:"phone,omitempty"`
}
