package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/oakfield-health/strikeplan/pkg/core/model"
	"github.com/oakfield-health/strikeplan/pkg/db"
)

// Reference reads live on *queries like everything else, so a service that
// wants reference data mid-transaction sees a consistent snapshot.

func (s *queries) GetHospital(ctx context.Context, id string) (*model.Hospital, error) {
	var h model.Hospital
	err := s.q.QueryRow(ctx, `SELECT id, code, name FROM hospital WHERE id = $1`, id).
		Scan(&h.ID, &h.Code, &h.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query hospital: %w", err)
	}
	return &h, nil
}

func (s *queries) GetDepartment(ctx context.Context, id string) (*model.Department, error) {
	var d model.Department
	err := s.q.QueryRow(ctx, `SELECT id, hospital_id, name FROM department WHERE id = $1`, id).
		Scan(&d.ID, &d.HospitalID, &d.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query department: %w", err)
	}
	return &d, nil
}

func (s *queries) GetJobType(ctx context.Context, id string) (*model.JobType, error) {
	var jt model.JobType
	err := s.q.QueryRow(ctx, `SELECT id, code, name FROM job_type WHERE id = $1`, id).
		Scan(&jt.ID, &jt.Code, &jt.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query job type: %w", err)
	}
	return &jt, nil
}

func (s *queries) GetJobTypeByCode(ctx context.Context, code string) (*model.JobType, error) {
	var jt model.JobType
	err := s.q.QueryRow(ctx, `SELECT id, code, name FROM job_type WHERE code = $1`, code).
		Scan(&jt.ID, &jt.Code, &jt.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query job type by code: %w", err)
	}
	return &jt, nil
}

const serviceColumns = `id, department_id, hospital_id, code, name, active,
	operates_weekends, operates_days, operates_nights, default_headcount,
	day_start, day_end, night_start, night_end`

func scanService(row pgx.Row) (*model.Service, error) {
	var svc model.Service
	err := row.Scan(&svc.ID, &svc.DepartmentID, &svc.HospitalID, &svc.Code, &svc.Name, &svc.Active,
		&svc.OperatesWeekends, &svc.OperatesDays, &svc.OperatesNights, &svc.DefaultHeadcount,
		&svc.DayWindow.Start, &svc.DayWindow.End, &svc.NightWindow.Start, &svc.NightWindow.End)
	if err != nil {
		return nil, err
	}
	return &svc, nil
}

// GetServicesInScope returns the services a scenario covers. A hospital-level
// scenario covers that hospital's services; a health-system scenario covers
// every hospital in the system.
func (s *queries) GetServicesInScope(ctx context.Context, healthSystemID, hospitalID string) ([]model.Service, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if hospitalID != "" {
		rows, err = s.q.Query(ctx, `
			SELECT `+serviceColumns+` FROM service
			WHERE hospital_id = $1
			ORDER BY code
		`, hospitalID)
	} else {
		rows, err = s.q.Query(ctx, `
			SELECT `+serviceColumns+` FROM service
			WHERE hospital_id IN (SELECT id FROM hospital WHERE health_system_id = $1)
			ORDER BY code
		`, healthSystemID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query services: %w", err)
	}
	defer rows.Close()

	var services []model.Service
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan service: %w", err)
		}
		services = append(services, *svc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating services: %w", err)
	}
	return services, nil
}

const configColumns = `id, service_id, job_type_id, day_start, day_end, night_start, night_end,
	default_headcount, weekday_am_headcount, weekday_pm_headcount,
	weekend_am_headcount, weekend_pm_headcount, operates_days, operates_nights`

func scanConfig(row pgx.Row) (*model.ServiceJobTypeConfig, error) {
	var (
		cfg                                    model.ServiceJobTypeConfig
		dayStart, dayEnd, nightStart, nightEnd *string
	)
	err := row.Scan(&cfg.ID, &cfg.ServiceID, &cfg.JobTypeID, &dayStart, &dayEnd, &nightStart, &nightEnd,
		&cfg.DefaultHeadcount, &cfg.WeekdayAMHeadcount, &cfg.WeekdayPMHeadcount,
		&cfg.WeekendAMHeadcount, &cfg.WeekendPMHeadcount, &cfg.OperatesDays, &cfg.OperatesNights)
	if err != nil {
		return nil, err
	}
	if dayStart != nil && dayEnd != nil {
		cfg.DayWindow = &model.ShiftWindow{Start: *dayStart, End: *dayEnd}
	}
	if nightStart != nil && nightEnd != nil {
		cfg.NightWindow = &model.ShiftWindow{Start: *nightStart, End: *nightEnd}
	}
	return &cfg, nil
}

func (s *queries) loadConfigSkills(ctx context.Context, configID string) ([]string, error) {
	rows, err := s.q.Query(ctx, `
		SELECT skill_id FROM service_job_type_config_skill WHERE config_id = $1 ORDER BY skill_id
	`, configID)
	if err != nil {
		return nil, fmt.Errorf("failed to query config skills: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan config skill: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *queries) GetServiceJobTypeConfigs(ctx context.Context, serviceID string) ([]model.ServiceJobTypeConfig, error) {
	rows, err := s.q.Query(ctx, `
		SELECT `+configColumns+` FROM service_job_type_config
		WHERE service_id = $1
		ORDER BY job_type_id
	`, serviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query service job type configs: %w", err)
	}
	defer rows.Close()

	var configs []model.ServiceJobTypeConfig
	for rows.Next() {
		cfg, err := scanConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan service job type config: %w", err)
		}
		configs = append(configs, *cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating service job type configs: %w", err)
	}
	rows.Close()

	for i := range configs {
		skills, err := s.loadConfigSkills(ctx, configs[i].ID)
		if err != nil {
			return nil, err
		}
		configs[i].RequiredSkillIDs = skills
	}
	return configs, nil
}

func (s *queries) GetServiceJobTypeConfig(ctx context.Context, serviceID, jobTypeID string) (*model.ServiceJobTypeConfig, error) {
	row := s.q.QueryRow(ctx, `
		SELECT `+configColumns+` FROM service_job_type_config
		WHERE service_id = $1 AND job_type_id = $2
	`, serviceID, jobTypeID)
	cfg, err := scanConfig(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query service job type config: %w", err)
	}
	cfg.RequiredSkillIDs, err = s.loadConfigSkills(ctx, cfg.ID)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

const providerColumns = `id, first_name, last_name, email, job_type_id, department_id, hospital_id, has_visa, active`

func scanProvider(row pgx.Row) (*model.Provider, error) {
	var p model.Provider
	err := row.Scan(&p.ID, &p.FirstName, &p.LastName, &p.Email, &p.JobTypeID, &p.DepartmentID,
		&p.HospitalID, &p.HasVisa, &p.Active)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *queries) loadProviderLinks(ctx context.Context, p *model.Provider) error {
	rows, err := s.q.Query(ctx, `SELECT skill_id FROM provider_skill WHERE provider_id = $1 ORDER BY skill_id`, p.ID)
	if err != nil {
		return fmt.Errorf("failed to query provider skills: %w", err)
	}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan provider skill: %w", err)
		}
		p.SkillIDs = append(p.SkillIDs, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating provider skills: %w", err)
	}

	rows, err = s.q.Query(ctx, `SELECT hospital_id FROM provider_hospital_access WHERE provider_id = $1 ORDER BY hospital_id`, p.ID)
	if err != nil {
		return fmt.Errorf("failed to query provider hospital access: %w", err)
	}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan provider hospital access: %w", err)
		}
		p.AccessibleHospitalIDs = append(p.AccessibleHospitalIDs, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating provider hospital access: %w", err)
	}
	return nil
}

func (s *queries) GetProvider(ctx context.Context, id string) (*model.Provider, error) {
	row := s.q.QueryRow(ctx, `SELECT `+providerColumns+` FROM provider WHERE id = $1`, id)
	p, err := scanProvider(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query provider: %w", err)
	}
	if err := s.loadProviderLinks(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *queries) GetProvidersByJobType(ctx context.Context, jobTypeID string) ([]model.Provider, error) {
	rows, err := s.q.Query(ctx, `
		SELECT `+providerColumns+` FROM provider
		WHERE job_type_id = $1
		ORDER BY last_name, first_name
	`, jobTypeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query providers: %w", err)
	}
	defer rows.Close()

	var providers []model.Provider
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan provider: %w", err)
		}
		providers = append(providers, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating providers: %w", err)
	}
	rows.Close()

	for i := range providers {
		if err := s.loadProviderLinks(ctx, &providers[i]); err != nil {
			return nil, err
		}
	}
	return providers, nil
}

// GetProviderAvailability returns the provider's availability record for a
// date, or (nil, nil) when none exists. Absence means available.
func (s *queries) GetProviderAvailability(ctx context.Context, providerID string, date time.Time) (*model.ProviderAvailability, error) {
	var a model.ProviderAvailability
	err := s.q.QueryRow(ctx, `
		SELECT provider_id, date, type, am_available, pm_available, am_preferred, pm_preferred
		FROM provider_availability
		WHERE provider_id = $1 AND date = $2
	`, providerID, date).Scan(&a.ProviderID, &a.Date, &a.Type, &a.AMAvailable, &a.PMAvailable, &a.AMPreferred, &a.PMPreferred)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query provider availability: %w", err)
	}
	return &a, nil
}
