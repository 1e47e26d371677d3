package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/abrefacil/checkout-server/formations"
)

type FormationRepo struct {
	pool *pgxpool.Pool
}

var _ formations.Repo = (*FormationRepo)(nil)

func (r *FormationRepo) InsertFormation(ctx context.Context, formation *formations.CompanyFormation) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO company_formations (id, lead_id, iptu, has_ecpf, ecpf_certificate_url, user_id, created_at)
		 VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7)`,
		formation.ID, formation.LeadID, formation.IPTU, formation.HasECPF,
		formation.ECPFCertificateURL, formation.UserID, formation.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting formation: %w", err)
	}
	return nil
}

// InsertPartners writes the whole batch in one transaction so a partial
// partner list can never be observed.
func (r *FormationRepo) InsertPartners(ctx context.Context, partners []*formations.Partner) error {
	if len(partners) == 0 {
		return errors.New("empty partner batch")
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("starting partner transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, p := range partners {
		_, err := tx.Exec(ctx,
			`INSERT INTO partners (id, company_formation_id, name, rg, cpf, cep, address, city_state, marital_status, birthplace_city, birthplace_state)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			p.ID, p.CompanyFormationID, p.Name, p.RG, p.CPF, p.CEP, p.Address,
			p.CityState, p.MaritalStatus, p.BirthplaceCity, p.BirthplaceState)
		if err != nil {
			return fmt.Errorf("inserting partner: %w", err)
		}
	}
	return tx.Commit(ctx)
}

func (r *FormationRepo) InsertDocument(ctx context.Context, doc *formations.Document) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO documents (id, company_formation_id, partner_id, document_type, file_name, file_url)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		doc.ID, doc.CompanyFormationID, doc.PartnerID, doc.DocumentType, doc.FileName, doc.FileURL)
	if err != nil {
		return fmt.Errorf("inserting document: %w", err)
	}
	return nil
}

func (r *FormationRepo) GetByID(ctx context.Context, id string) (*formations.CompanyFormation, error) {
	var (
		formation formations.CompanyFormation
		ecpfURL   *string
	)
	err := r.pool.QueryRow(ctx,
		`SELECT id, lead_id, iptu, has_ecpf, ecpf_certificate_url, user_id, created_at
		 FROM company_formations WHERE id = $1`, id).
		Scan(&formation.ID, &formation.LeadID, &formation.IPTU, &formation.HasECPF,
			&ecpfURL, &formation.UserID, &formation.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, formations.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying formation: %w", err)
	}
	if ecpfURL != nil {
		formation.ECPFCertificateURL = *ecpfURL
	}
	return &formation, nil
}

func (r *FormationRepo) PartnersByFormation(ctx context.Context, formationID string) ([]*formations.Partner, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, company_formation_id, name, rg, cpf, cep, address, city_state, marital_status, birthplace_city, birthplace_state
		 FROM partners WHERE company_formation_id = $1`, formationID)
	if err != nil {
		return nil, fmt.Errorf("listing partners: %w", err)
	}
	defer rows.Close()

	var out []*formations.Partner
	for rows.Next() {
		var p formations.Partner
		if err := rows.Scan(&p.ID, &p.CompanyFormationID, &p.Name, &p.RG, &p.CPF, &p.CEP,
			&p.Address, &p.CityState, &p.MaritalStatus, &p.BirthplaceCity, &p.BirthplaceState); err != nil {
			return nil, fmt.Errorf("scanning partner: %w", err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

func (r *FormationRepo) DocumentsByFormation(ctx context.Context, formationID string) ([]*formations.Document, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, company_formation_id, partner_id, document_type, file_name, file_url
		 FROM documents WHERE company_formation_id = $1`, formationID)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var out []*formations.Document
	for rows.Next() {
		var d formations.Document
		if err := rows.Scan(&d.ID, &d.CompanyFormationID, &d.PartnerID, &d.DocumentType, &d.FileName, &d.FileURL); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}

func (r *FormationRepo) ListByUser(ctx context.Context, userID string) ([]*formations.CompanyFormation, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, lead_id, iptu, has_ecpf, ecpf_certificate_url, user_id, created_at
		 FROM company_formations WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing formations: %w", err)
	}
	defer rows.Close()

	var out []*formations.CompanyFormation
	for rows.Next() {
		var (
			formation formations.CompanyFormation
			ecpfURL   *string
		)
		if err := rows.Scan(&formation.ID, &formation.LeadID, &formation.IPTU, &formation.HasECPF,
			&ecpfURL, &formation.UserID, &formation.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning formation: %w", err)
		}
		if ecpfURL != nil {
			formation.ECPFCertificateURL = *ecpfURL
		}
		out = append(out, &formation)
	}
	return out, rows.Err()
}
