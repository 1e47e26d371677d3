package checkout_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/abrefacil/checkout-server/billing"
	"github.com/abrefacil/checkout-server/checkout"
	"github.com/abrefacil/checkout-server/docstore"
	fakeformationrepo "github.com/abrefacil/checkout-server/formations/repofake"
	"github.com/abrefacil/checkout-server/internal/errclass"
	"github.com/abrefacil/checkout-server/internal/utils"
	"github.com/abrefacil/checkout-server/leads"
	fakeleadrepo "github.com/abrefacil/checkout-server/leads/repofake"
	fakequalificationrepo "github.com/abrefacil/checkout-server/qualifications/repofake"
	"github.com/abrefacil/checkout-server/session"
	"github.com/abrefacil/checkout-server/session/clientfakes"
	fakesubscriptionrepo "github.com/abrefacil/checkout-server/subscriptions/repofake"
)

type billingProviderStub struct {
	failCustomer error
}

func (p *billingProviderStub) CreateCustomer(context.Context, billing.CustomerData) (string, error) {
	if p.failCustomer != nil {
		return "", p.failCustomer
	}
	return "cus_000001", nil
}

func (p *billingProviderStub) CreateSubscription(context.Context, billing.ProviderSubscription) (*billing.ProviderSubscriptionResult, error) {
	return &billing.ProviderSubscriptionResult{ID: "sub_000001", Status: "ACTIVE"}, nil
}

func (p *billingProviderStub) FirstPayment(context.Context, string) (*billing.ProviderPayment, error) {
	return &billing.ProviderPayment{ID: "pay_000001", BankSlipURL: "https://example.com/boleto"}, nil
}

func (p *billingProviderStub) PixQrCode(context.Context, string) (string, error) {
	return "00020126pixpayload", nil
}

type harness struct {
	svc      *checkout.Service
	client   *clientfakes.FakeClient
	state    *session.State
	leadRepo *fakeleadrepo.FakeLeadRepo
	qualRepo *fakequalificationrepo.FakeQualificationRepo
	formRepo *fakeformationrepo.FakeFormationRepo
	subRepo  *fakesubscriptionrepo.FakeSubscriptionRepo
	store    *docstore.MemoryObjectStore
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	sessionStore := session.NewMemoryStore()
	reader := session.NewReader(sessionStore, "sb-test-auth-token", "")
	backup := session.NewBackup(sessionStore, reader)
	state := session.NewState(reader, backup)
	client := clientfakes.New()
	resolver := session.NewResolver(state, reader, backup, client, session.ResolverConfig{
		HydrationTimeout: 100 * time.Millisecond,
		RetryDelays:      []time.Duration{0, time.Millisecond},
	})

	h := &harness{
		client:   client,
		state:    state,
		leadRepo: fakeleadrepo.NewFakeLeadRepo(),
		qualRepo: fakequalificationrepo.NewFakeQualificationRepo(),
		formRepo: fakeformationrepo.NewFakeFormationRepo(),
		subRepo:  fakesubscriptionrepo.NewFakeSubscriptionRepo(),
		store:    docstore.NewMemoryObjectStore(),
	}
	h.svc = checkout.NewService(
		resolver,
		h.leadRepo,
		h.qualRepo,
		h.formRepo,
		h.subRepo,
		billing.NewService(&billingProviderStub{}),
		docstore.NewUploader(h.store),
	)
	return h
}

func (h *harness) signIn(t *testing.T) {
	t.Helper()
	h.state.Adopt(session.EventSignedIn, &session.Session{
		AccessToken:  "access-token",
		RefreshToken: "refresh-token",
		User:         &session.User{ID: "user-1", Email: "user@example.com"},
		ExpiresAt:    time.Now().Add(time.Hour).Unix(),
	})
}

func (h *harness) settleSignedOut() {
	h.state.Adopt(session.EventInitialSession, nil)
}

func (h *harness) createLead(t *testing.T) *leads.Lead {
	t.Helper()
	lead, err := h.svc.CreateLead(context.Background(), checkout.LeadInput{
		Name:  "Maria Souza",
		Email: "maria@example.com",
		Phone: "11999990000",
	})
	require.NoError(t, err)
	return lead
}

func validSubmission(leadID string) *checkout.FormationSubmission {
	return &checkout.FormationSubmission{
		LeadID: leadID,
		IPTU:   "12345678",
		Partners: []checkout.PartnerInput{{
			Name:            "Maria Souza",
			RG:              "123456789",
			CPF:             "529.982.247-25",
			CEP:             "01310100",
			Address:         "Av. Paulista, 1000",
			CityState:       "São Paulo/SP",
			MaritalStatus:   "solteira",
			BirthplaceCity:  "Campinas",
			BirthplaceState: "SP",
		}},
	}
}

func TestCreateLead(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	t.Run("captures the lead", func(t *testing.T) {
		lead := h.createLead(t)
		require.NotEmpty(t, lead.ID)

		stored, err := h.leadRepo.GetByID(ctx, lead.ID)
		require.NoError(t, err)
		require.Equal(t, "maria@example.com", stored.Email)
	})

	t.Run("rejects bad input", func(t *testing.T) {
		_, err := h.svc.CreateLead(ctx, checkout.LeadInput{Name: "x", Email: "nope", Phone: "1"})
		var inputErr *checkout.InputError
		require.ErrorAs(t, err, &inputErr)
		require.Len(t, inputErr.Fields, 3)
	})
}

func TestSaveQualification(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	lead := h.createLead(t)

	tests := []struct {
		name    string
		segment string
		area    string
		revenue string
		want    bool
	}{
		{"service business qualifies", "Serviço", "Tecnologia", "Até 50 mil/mês", true},
		{"commerce does not qualify", "Comércio", "Tecnologia", "Até 50 mil/mês", false},
		{"industry does not qualify", "Indústria", "Tecnologia", "Até 50 mil/mês", false},
		{"other area needs review", "Serviço", "Outros", "Até 50 mil/mês", false},
		{"revenue above ceiling goes elsewhere", "Serviço", "Tecnologia", "Acima de 1 milhão/mês", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			q, err := h.svc.SaveQualification(ctx, lead.ID, checkout.QualificationInput{
				CompanySegment:  tc.segment,
				AreaOfOperation: tc.area,
				MonthlyRevenue:  tc.revenue,
			})
			require.NoError(t, err)
			require.Equal(t, tc.want, q.IsQualified)
		})
	}

	t.Run("unknown lead", func(t *testing.T) {
		_, err := h.svc.SaveQualification(ctx, "00000000-0000-0000-0000-000000000000", checkout.QualificationInput{
			CompanySegment:  "Serviço",
			AreaOfOperation: "Tecnologia",
			MonthlyRevenue:  "Até 50 mil/mês",
		})
		require.Error(t, err)
	})
}

func TestCreateFormation(t *testing.T) {
	ctx := context.Background()

	t.Run("saves formation, partners and documents", func(t *testing.T) {
		h := newHarness(t)
		h.signIn(t)
		lead := h.createLead(t)

		sub := validSubmission(lead.ID)
		sub.Documents = []checkout.DocumentInput{
			{DocumentType: "iptu", FileName: "iptu.pdf", FileURL: "https://example.com/iptu.pdf"},
			{PartnerIndex: utils.Ptr(0), DocumentType: "rg", FileName: "rg.png", FileURL: "https://example.com/rg.png"},
		}

		formation, err := h.svc.CreateFormation(ctx, sub)
		require.NoError(t, err)
		require.Equal(t, "user-1", formation.UserID)

		partners, err := h.formRepo.PartnersByFormation(ctx, formation.ID)
		require.NoError(t, err)
		require.Len(t, partners, 1)

		docs, err := h.formRepo.DocumentsByFormation(ctx, formation.ID)
		require.NoError(t, err)
		require.Len(t, docs, 2)
		var partnerDocs int
		for _, doc := range docs {
			if doc.PartnerID != nil {
				partnerDocs++
				require.Equal(t, partners[0].ID, *doc.PartnerID)
			}
		}
		require.Equal(t, 1, partnerDocs)
	})

	t.Run("requires at least one partner", func(t *testing.T) {
		h := newHarness(t)
		h.signIn(t)
		lead := h.createLead(t)

		sub := validSubmission(lead.ID)
		sub.Partners = nil
		_, err := h.svc.CreateFormation(ctx, sub)
		var inputErr *checkout.InputError
		require.ErrorAs(t, err, &inputErr)
	})

	t.Run("rejects out of range partner index", func(t *testing.T) {
		h := newHarness(t)
		h.signIn(t)
		lead := h.createLead(t)

		sub := validSubmission(lead.ID)
		sub.Documents = []checkout.DocumentInput{
			{PartnerIndex: utils.Ptr(3), DocumentType: "rg", FileName: "rg.png", FileURL: "https://example.com/rg.png"},
		}
		_, err := h.svc.CreateFormation(ctx, sub)
		var inputErr *checkout.InputError
		require.ErrorAs(t, err, &inputErr)
	})

	t.Run("rejects invalid partner cpf", func(t *testing.T) {
		h := newHarness(t)
		h.signIn(t)
		lead := h.createLead(t)

		sub := validSubmission(lead.ID)
		sub.Partners[0].CPF = "111.111.111-11"
		_, err := h.svc.CreateFormation(ctx, sub)
		var inputErr *checkout.InputError
		require.ErrorAs(t, err, &inputErr)
	})

	t.Run("signed out is a session error", func(t *testing.T) {
		h := newHarness(t)
		h.settleSignedOut()
		lead := h.createLead(t)

		_, err := h.svc.CreateFormation(ctx, validSubmission(lead.ID))
		var se *checkout.SubmissionError
		require.ErrorAs(t, err, &se)
		require.Equal(t, errclass.Session, se.Class)
		require.Equal(t, checkout.MsgSession, se.Message)
	})

	t.Run("network failure is reported as such, not as signed out", func(t *testing.T) {
		h := newHarness(t)
		h.settleSignedOut()
		lead := h.createLead(t)
		h.client.CurrentSessionFunc = func(context.Context) (*session.Session, error) {
			return nil, errors.New("dial tcp: connection refused")
		}

		_, err := h.svc.CreateFormation(ctx, validSubmission(lead.ID))
		var se *checkout.SubmissionError
		require.ErrorAs(t, err, &se)
		require.Equal(t, errclass.Network, se.Class)
		require.Equal(t, checkout.MsgNetwork, se.Message)
	})

	t.Run("credential-shaped insert failure retries after forced refresh", func(t *testing.T) {
		h := newHarness(t)
		h.signIn(t)
		lead := h.createLead(t)

		h.formRepo.FailInsertFormation = errors.New("JWT expired")
		h.formRepo.FailInsertFormationOnce = true
		h.client.RefreshSessionFunc = func(ctx context.Context, refreshToken string) (*session.Session, error) {
			return &session.Session{
				AccessToken:  "access-rotated",
				RefreshToken: "refresh-rotated",
				User:         &session.User{ID: "user-1"},
				ExpiresAt:    time.Now().Add(time.Hour).Unix(),
			}, nil
		}

		formation, err := h.svc.CreateFormation(ctx, validSubmission(lead.ID))
		require.NoError(t, err)
		require.EqualValues(t, 1, h.client.RefreshCalls())

		_, err = h.formRepo.GetByID(ctx, formation.ID)
		require.NoError(t, err)
	})

	t.Run("plain database failure does not retry", func(t *testing.T) {
		h := newHarness(t)
		h.signIn(t)
		lead := h.createLead(t)

		h.formRepo.FailInsertFormation = errors.New("duplicate key value violates unique constraint")

		_, err := h.svc.CreateFormation(ctx, validSubmission(lead.ID))
		var se *checkout.SubmissionError
		require.ErrorAs(t, err, &se)
		require.Equal(t, errclass.Database, se.Class)
		require.Equal(t, checkout.MsgDatabase, se.Message)
		require.EqualValues(t, 0, h.client.RefreshCalls())
	})

	t.Run("partner failure blocks the submission", func(t *testing.T) {
		h := newHarness(t)
		h.signIn(t)
		lead := h.createLead(t)

		h.formRepo.FailInsertPartners = errors.New("insert into partners failed")
		_, err := h.svc.CreateFormation(ctx, validSubmission(lead.ID))
		require.Error(t, err)
	})

	t.Run("document failure does not block the submission", func(t *testing.T) {
		h := newHarness(t)
		h.signIn(t)
		lead := h.createLead(t)

		h.formRepo.FailInsertDocument = errors.New("insert into documents failed")
		sub := validSubmission(lead.ID)
		sub.Documents = []checkout.DocumentInput{
			{DocumentType: "iptu", FileName: "iptu.pdf", FileURL: "https://example.com/iptu.pdf"},
		}

		formation, err := h.svc.CreateFormation(ctx, sub)
		require.NoError(t, err)

		docs, err := h.formRepo.DocumentsByFormation(ctx, formation.ID)
		require.NoError(t, err)
		require.Empty(t, docs)
	})
}

func TestCreateSubscription(t *testing.T) {
	ctx := context.Background()

	validRequest := func(leadID string) *billing.SubscriptionRequest {
		return &billing.SubscriptionRequest{
			Customer: billing.CustomerData{
				Name:    "Maria Souza",
				Email:   "maria@example.com",
				CpfCnpj: "529.982.247-25",
				Phone:   "11999990000",
			},
			BillingType: billing.BillingBoleto,
			PlanName:    "Plano de Contabilidade",
			PlanValue:   189.90,
			LeadID:      leadID,
		}
	}

	t.Run("creates and records the subscription", func(t *testing.T) {
		h := newHarness(t)
		h.signIn(t)
		lead := h.createLead(t)

		result, err := h.svc.CreateSubscription(ctx, validRequest(lead.ID))
		require.NoError(t, err)
		require.Equal(t, "sub_000001", result.SubscriptionID)
		require.Equal(t, "https://example.com/boleto", result.BankSlipURL)

		recorded, err := h.subRepo.GetByLeadID(ctx, lead.ID)
		require.NoError(t, err)
		require.Equal(t, "sub_000001", recorded.AsaasSubscriptionID)
		require.Equal(t, "BOLETO", recorded.BillingType)
		require.InEpsilon(t, 189.90, recorded.PlanValue, 0.0001)
	})

	t.Run("validation failures pass through", func(t *testing.T) {
		h := newHarness(t)
		h.signIn(t)

		req := validRequest("lead-1")
		req.Customer.CpfCnpj = "123"
		_, err := h.svc.CreateSubscription(ctx, req)
		var verr *billing.ValidationError
		require.ErrorAs(t, err, &verr)
	})

	t.Run("requires a session", func(t *testing.T) {
		h := newHarness(t)
		h.settleSignedOut()

		_, err := h.svc.CreateSubscription(ctx, validRequest("lead-1"))
		var se *checkout.SubmissionError
		require.ErrorAs(t, err, &se)
		require.Equal(t, errclass.Session, se.Class)
	})
}

func TestUploadDocument(t *testing.T) {
	ctx := context.Background()

	t.Run("uploads for a signed-in user", func(t *testing.T) {
		h := newHarness(t)
		h.signIn(t)

		uploaded, err := h.svc.UploadDocument(ctx, "rg", "application/pdf", []byte("%PDF"))
		require.NoError(t, err)
		_, ok := h.store.Object(uploaded.Path)
		require.True(t, ok)
	})

	t.Run("requires a session", func(t *testing.T) {
		h := newHarness(t)
		h.settleSignedOut()

		_, err := h.svc.UploadDocument(ctx, "rg", "application/pdf", []byte("%PDF"))
		var se *checkout.SubmissionError
		require.ErrorAs(t, err, &se)
		require.Equal(t, errclass.Session, se.Class)
	})
}
