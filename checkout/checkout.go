// Package checkout orchestrates the company-formation checkout: lead
// capture, qualification, billing and the formation record itself. It
// owns the partial-failure policy for multi-row submissions.
package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/abrefacil/checkout-server/billing"
	"github.com/abrefacil/checkout-server/docstore"
	"github.com/abrefacil/checkout-server/formations"
	"github.com/abrefacil/checkout-server/internal/errclass"
	"github.com/abrefacil/checkout-server/leads"
	"github.com/abrefacil/checkout-server/qualifications"
	"github.com/abrefacil/checkout-server/session"
	"github.com/abrefacil/checkout-server/subscriptions"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("cpfcnpj", func(fl validator.FieldLevel) bool {
		return billing.ValidCpfCnpj(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// InputError reports rejected request fields before anything is saved.
type InputError struct {
	Fields []string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid input: %v", e.Fields)
}

func validateInput(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Namespace())
	}
	return &InputError{Fields: fields}
}

// Service wires the checkout flow together. Identity resolution goes
// through the session resolver so an expired token mid-flow recovers
// instead of losing the user's form data.
type Service struct {
	resolver *session.Resolver
	leads    leads.Repo
	quals    qualifications.Repo
	forms    formations.Repo
	subs     subscriptions.Repo
	billing  *billing.Service
	uploader *docstore.Uploader
}

func NewService(
	resolver *session.Resolver,
	leadRepo leads.Repo,
	qualRepo qualifications.Repo,
	formationRepo formations.Repo,
	subscriptionRepo subscriptions.Repo,
	billingSvc *billing.Service,
	uploader *docstore.Uploader,
) *Service {
	return &Service{
		resolver: resolver,
		leads:    leadRepo,
		quals:    qualRepo,
		forms:    formationRepo,
		subs:     subscriptionRepo,
		billing:  billingSvc,
		uploader: uploader,
	}
}

// LeadInput is the public landing form payload.
type LeadInput struct {
	Name  string `json:"name" validate:"required,min=3"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"required,min=10"`
}

// CreateLead captures a lead. Public: runs before any account exists.
func (s *Service) CreateLead(ctx context.Context, input LeadInput) (*leads.Lead, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	lead := &leads.Lead{
		ID:        uuid.New().String(),
		Name:      input.Name,
		Email:     input.Email,
		Phone:     input.Phone,
		CreatedAt: NowTimeFunc(),
	}
	if err := s.leads.Insert(ctx, lead); err != nil {
		return nil, wrapSubmission(fmt.Errorf("saving lead: %w", err))
	}
	return lead, nil
}

// QualificationInput is the qualification form payload.
type QualificationInput struct {
	CompanySegment  string `json:"company_segment" validate:"required"`
	AreaOfOperation string `json:"area_of_operation" validate:"required"`
	MonthlyRevenue  string `json:"monthly_revenue" validate:"required"`
}

// SaveQualification scores and stores the lead's answers. Public.
func (s *Service) SaveQualification(ctx context.Context, leadID string, input QualificationInput) (*qualifications.Qualification, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	if _, err := s.leads.GetByID(ctx, leadID); err != nil {
		return nil, wrapSubmission(fmt.Errorf("loading lead %s: %w", leadID, err))
	}

	q := &qualifications.Qualification{
		ID:              uuid.New().String(),
		LeadID:          leadID,
		CompanySegment:  input.CompanySegment,
		AreaOfOperation: input.AreaOfOperation,
		MonthlyRevenue:  input.MonthlyRevenue,
		IsQualified:     qualifications.Evaluate(input.CompanySegment, input.AreaOfOperation, input.MonthlyRevenue),
		CreatedAt:       NowTimeFunc(),
	}
	if err := s.quals.Insert(ctx, q); err != nil {
		return nil, wrapSubmission(fmt.Errorf("saving qualification: %w", err))
	}
	return q, nil
}

// CreateSubscription charges through the billing provider and records
// the result. Validation failures surface as *billing.ValidationError.
func (s *Service) CreateSubscription(ctx context.Context, req *billing.SubscriptionRequest) (*billing.SubscriptionResult, error) {
	if _, err := s.resolver.EnsureUserID(ctx); err != nil {
		return nil, wrapSubmission(err)
	}

	result, err := s.billing.CreateSubscription(ctx, req)
	if err != nil {
		return nil, err
	}

	sub := &subscriptions.Subscription{
		ID:                  uuid.New().String(),
		LeadID:              req.LeadID,
		AsaasCustomerID:     result.CustomerID,
		AsaasSubscriptionID: result.SubscriptionID,
		BillingType:         string(result.BillingType),
		PlanName:            req.PlanName,
		PlanValue:           req.PlanValue,
		Status:              result.Status,
		BankSlipURL:         result.BankSlipURL,
		PixQrCodeURL:        result.PixQrCodeURL,
		CreatedAt:           NowTimeFunc(),
	}
	if err := s.subs.Insert(ctx, sub); err != nil {
		// The provider-side subscription exists; losing the local row
		// is recoverable from the provider's records, so log loudly and
		// still return the result.
		log.Error().Err(err).
			Str("subscriptionID", result.SubscriptionID).
			Msg("checkout: subscription created but local record failed")
	}
	return result, nil
}

// PartnerInput is one partner on the formation form.
type PartnerInput struct {
	Name            string `json:"name" validate:"required,min=3"`
	RG              string `json:"rg" validate:"required"`
	CPF             string `json:"cpf" validate:"required,cpfcnpj"`
	CEP             string `json:"cep" validate:"required,min=8"`
	Address         string `json:"address" validate:"required"`
	CityState       string `json:"city_state" validate:"required"`
	MaritalStatus   string `json:"marital_status" validate:"required"`
	BirthplaceCity  string `json:"birthplace_city" validate:"required"`
	BirthplaceState string `json:"birthplace_state" validate:"required"`
}

// DocumentInput is an already-uploaded document to be linked to the
// formation. PartnerIndex points into the Partners slice when the
// document belongs to a specific partner.
type DocumentInput struct {
	PartnerIndex *int   `json:"partner_index,omitempty"`
	DocumentType string `json:"document_type" validate:"required"`
	FileName     string `json:"file_name" validate:"required"`
	FileURL      string `json:"file_url" validate:"required,url"`
}

// FormationSubmission is the final form payload.
type FormationSubmission struct {
	LeadID             string          `json:"lead_id" validate:"required,uuid4"`
	IPTU               string          `json:"iptu" validate:"required"`
	HasECPF            bool            `json:"has_ecpf"`
	ECPFCertificateURL string          `json:"ecpf_certificate_url,omitempty" validate:"omitempty,url"`
	Partners           []PartnerInput  `json:"partners" validate:"required,min=1,dive"`
	Documents          []DocumentInput `json:"documents" validate:"dive"`
}

// CreateFormation saves the formation and its partners, then links the
// documents. The formation and partner rows are blocking: a failure
// there fails the submission (after one forced token refresh when the
// failure is credential-shaped). Document rows are non-blocking: they
// are logged and skipped so a single broken upload cannot burn a
// completed form.
func (s *Service) CreateFormation(ctx context.Context, sub *FormationSubmission) (*formations.CompanyFormation, error) {
	if err := validateInput(sub); err != nil {
		return nil, err
	}
	for _, doc := range sub.Documents {
		if doc.PartnerIndex != nil && (*doc.PartnerIndex < 0 || *doc.PartnerIndex >= len(sub.Partners)) {
			return nil, &InputError{Fields: []string{"documents.partner_index"}}
		}
	}

	userID, err := s.resolver.EnsureUserID(ctx)
	if err != nil {
		return nil, wrapSubmission(err)
	}

	formation := &formations.CompanyFormation{
		ID:                 uuid.New().String(),
		LeadID:             sub.LeadID,
		IPTU:               sub.IPTU,
		HasECPF:            sub.HasECPF,
		ECPFCertificateURL: sub.ECPFCertificateURL,
		UserID:             userID,
		CreatedAt:          NowTimeFunc(),
	}
	partners := make([]*formations.Partner, 0, len(sub.Partners))
	for _, p := range sub.Partners {
		partners = append(partners, &formations.Partner{
			ID:                 uuid.New().String(),
			CompanyFormationID: formation.ID,
			Name:               p.Name,
			RG:                 p.RG,
			CPF:                p.CPF,
			CEP:                p.CEP,
			Address:            p.Address,
			CityState:          p.CityState,
			MaritalStatus:      p.MaritalStatus,
			BirthplaceCity:     p.BirthplaceCity,
			BirthplaceState:    p.BirthplaceState,
		})
	}

	if err := s.withAuthRetry(ctx, func() error {
		return s.forms.InsertFormation(ctx, formation)
	}); err != nil {
		return nil, wrapSubmission(fmt.Errorf("saving formation: %w", err))
	}
	if err := s.withAuthRetry(ctx, func() error {
		return s.forms.InsertPartners(ctx, partners)
	}); err != nil {
		return nil, wrapSubmission(fmt.Errorf("saving partners: %w", err))
	}

	for _, doc := range sub.Documents {
		row := &formations.Document{
			ID:                 uuid.New().String(),
			CompanyFormationID: formation.ID,
			DocumentType:       doc.DocumentType,
			FileName:           doc.FileName,
			FileURL:            doc.FileURL,
		}
		if doc.PartnerIndex != nil {
			row.PartnerID = &partners[*doc.PartnerIndex].ID
		}
		if err := s.forms.InsertDocument(ctx, row); err != nil {
			log.Warn().Err(err).
				Str("formationID", formation.ID).
				Str("documentType", doc.DocumentType).
				Msg("checkout: document record failed, continuing")
		}
	}

	return formation, nil
}

// UploadDocument stores a document blob and returns its public URL.
func (s *Service) UploadDocument(ctx context.Context, documentType, contentType string, data []byte) (*docstore.Uploaded, error) {
	if _, err := s.resolver.EnsureUserID(ctx); err != nil {
		return nil, wrapSubmission(err)
	}
	return s.uploader.Upload(ctx, documentType, contentType, data)
}

// LeadOverview pairs a lead with its qualification answers, when the
// lead got that far through the funnel.
type LeadOverview struct {
	Lead          *leads.Lead                   `json:"lead"`
	Qualification *qualifications.Qualification `json:"qualification,omitempty"`
}

// ListLeads pages through captured leads, newest last.
func (s *Service) ListLeads(ctx context.Context, offset, limit int) ([]*LeadOverview, error) {
	list, err := s.leads.List(ctx, offset, limit)
	if err != nil {
		return nil, wrapSubmission(fmt.Errorf("listing leads: %w", err))
	}

	out := make([]*LeadOverview, 0, len(list))
	for _, lead := range list {
		overview := &LeadOverview{Lead: lead}
		if q, err := s.quals.GetByLeadID(ctx, lead.ID); err == nil {
			overview.Qualification = q
		}
		out = append(out, overview)
	}
	return out, nil
}

// ListSubscriptions pages through recorded subscriptions.
func (s *Service) ListSubscriptions(ctx context.Context, offset, limit int) ([]*subscriptions.Subscription, error) {
	out, err := s.subs.List(ctx, offset, limit)
	if err != nil {
		return nil, wrapSubmission(fmt.Errorf("listing subscriptions: %w", err))
	}
	return out, nil
}

// FormationDetail is a formation with its partner and document rows.
type FormationDetail struct {
	Formation *formations.CompanyFormation `json:"formation"`
	Partners  []*formations.Partner        `json:"partners"`
	Documents []*formations.Document       `json:"documents"`
}

// ListFormationsByUser returns every formation a user submitted, with
// partners and documents attached.
func (s *Service) ListFormationsByUser(ctx context.Context, userID string) ([]*FormationDetail, error) {
	list, err := s.forms.ListByUser(ctx, userID)
	if err != nil {
		return nil, wrapSubmission(fmt.Errorf("listing formations: %w", err))
	}

	out := make([]*FormationDetail, 0, len(list))
	for _, formation := range list {
		detail := &FormationDetail{Formation: formation}
		if detail.Partners, err = s.forms.PartnersByFormation(ctx, formation.ID); err != nil {
			return nil, wrapSubmission(fmt.Errorf("listing partners for %s: %w", formation.ID, err))
		}
		if detail.Documents, err = s.forms.DocumentsByFormation(ctx, formation.ID); err != nil {
			return nil, wrapSubmission(fmt.Errorf("listing documents for %s: %w", formation.ID, err))
		}
		out = append(out, detail)
	}
	return out, nil
}

// withAuthRetry runs fn once, and once more after a forced token
// refresh when the failure looks like a rejected credential rather
// than a broken connection or bad data.
func (s *Service) withAuthRetry(ctx context.Context, fn func() error) error {
	err := fn()
	if err == nil || !errclass.IsAuthToken(err) {
		return err
	}

	if _, refreshErr := s.resolver.ForceRefresh(ctx); refreshErr != nil {
		log.Warn().Err(refreshErr).Msg("checkout: forced refresh before retry failed")
		return err
	}
	return fn()
}
