// Package formations models a company-formation request: the company
// details, its partners and their supporting documents.
package formations

import "time"

type CompanyFormation struct {
	ID                 string    `json:"id"`
	LeadID             string    `json:"lead_id"`
	IPTU               string    `json:"iptu"`
	HasECPF            bool      `json:"has_ecpf"`
	ECPFCertificateURL string    `json:"ecpf_certificate_url,omitempty"`
	UserID             string    `json:"user_id"`
	CreatedAt          time.Time `json:"created_at"`
}

type Partner struct {
	ID                 string `json:"id"`
	CompanyFormationID string `json:"company_formation_id"`
	Name               string `json:"name"`
	RG                 string `json:"rg"`
	CPF                string `json:"cpf"`
	CEP                string `json:"cep"`
	Address            string `json:"address"`
	CityState          string `json:"city_state"`
	MaritalStatus      string `json:"marital_status"`
	BirthplaceCity     string `json:"birthplace_city"`
	BirthplaceState    string `json:"birthplace_state"`
}

type Document struct {
	ID                 string  `json:"id"`
	CompanyFormationID string  `json:"company_formation_id"`
	PartnerID          *string `json:"partner_id,omitempty"`
	DocumentType       string  `json:"document_type"`
	FileName           string  `json:"file_name"`
	FileURL            string  `json:"file_url"`
}
