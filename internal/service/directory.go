package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/visit-management/internal/model"
	"github.com/iliyamo/visit-management/internal/policy"
	"github.com/iliyamo/visit-management/internal/repository"
)

// Directory manages areas and profiles.  It keeps at most one CHIEF per
// area: every role or area change checks for a different chief first, and
// the store's unique index catches the race the check cannot.
type Directory struct {
	profiles ProfileStore
	areas    AreaStore
	clock    Clock
	log      *zap.Logger
	metrics  Recorder
	newID    func() string
}

func NewDirectory(d Deps) *Directory {
	d = d.withDefaults()
	return &Directory{
		profiles: d.Profiles,
		areas:    d.Areas,
		clock:    d.Clock,
		log:      d.Logger,
		metrics:  d.Metrics,
		newID:    uuid.NewString,
	}
}

func (d *Directory) denied(actor model.Actor, err error) error {
	observeDenial(d.metrics, d.log, actor, err)
	return err
}

// Profile loads one profile.
func (d *Directory) Profile(ctx context.Context, id string) (model.Profile, error) {
	p, err := d.profiles.GetProfile(ctx, id)
	if err != nil {
		return model.Profile{}, notFoundOr(err, "profile", id)
	}
	return p, nil
}

// FindChiefOfArea returns the chief of areaID other than excludeID, or nil.
func (d *Directory) FindChiefOfArea(ctx context.Context, areaID, excludeID string) (*model.Profile, error) {
	p, err := d.profiles.FindChiefOfArea(ctx, areaID, excludeID)
	if err != nil {
		return nil, storageErr(err)
	}
	return p, nil
}

// conflict builds the ConflictError for areaID, naming the chief when it
// can still be found.
func (d *Directory) conflict(ctx context.Context, areaID, excludeID string) error {
	chief, err := d.profiles.FindChiefOfArea(ctx, areaID, excludeID)
	if err != nil || chief == nil {
		return &model.ConflictError{}
	}
	return &model.ConflictError{ExistingChiefEmail: chief.Email}
}

// AssignRole changes another profile's role.  Promoting to CHIEF fails with a
// ConflictError when the profile's area already has a different chief.
func (d *Directory) AssignRole(ctx context.Context, actor model.Actor, profileID string, role model.Role) (model.Profile, error) {
	if err := policy.CanAdministerDirectory(actor); err != nil {
		return model.Profile{}, d.denied(actor, err)
	}
	if !role.Valid() {
		return model.Profile{}, model.Invalid("role", "must be one of ADMIN CHIEF ADVISOR")
	}
	target, err := d.Profile(ctx, profileID)
	if err != nil {
		return model.Profile{}, err
	}
	if err := policy.CanAdministerProfile(actor, target); err != nil {
		return model.Profile{}, d.denied(actor, err)
	}
	if role == model.RoleChief && target.AreaID != nil {
		chief, err := d.FindChiefOfArea(ctx, *target.AreaID, target.ID)
		if err != nil {
			return model.Profile{}, err
		}
		if chief != nil {
			return model.Profile{}, &model.ConflictError{ExistingChiefEmail: chief.Email}
		}
	}
	if err := d.profiles.SetProfileRole(ctx, target.ID, role); err != nil {
		if errors.Is(err, repository.ErrUniqueChief) && target.AreaID != nil {
			return model.Profile{}, d.conflict(ctx, *target.AreaID, target.ID)
		}
		return model.Profile{}, notFoundOr(err, "profile", profileID)
	}
	d.log.Info("profile role changed",
		zap.String("actor_id", actor.ID),
		zap.String("profile_id", target.ID),
		zap.String("role", string(role)))
	target.Role = role
	return target, nil
}

// AssignArea moves another profile into areaID, or out of any area when areaID is
// nil.  Moving a CHIEF fails with a ConflictError when the target area
// already has a different chief.
func (d *Directory) AssignArea(ctx context.Context, actor model.Actor, profileID string, areaID *string) (model.Profile, error) {
	if err := policy.CanAdministerDirectory(actor); err != nil {
		return model.Profile{}, d.denied(actor, err)
	}
	target, err := d.Profile(ctx, profileID)
	if err != nil {
		return model.Profile{}, err
	}
	if err := policy.CanAdministerProfile(actor, target); err != nil {
		return model.Profile{}, d.denied(actor, err)
	}
	var area model.Area
	if areaID != nil {
		if area, err = d.areas.GetArea(ctx, *areaID); err != nil {
			return model.Profile{}, referenceOr(err, "area_id")
		}
		if target.Role == model.RoleChief {
			chief, err := d.FindChiefOfArea(ctx, *areaID, target.ID)
			if err != nil {
				return model.Profile{}, err
			}
			if chief != nil {
				return model.Profile{}, &model.ConflictError{ExistingChiefEmail: chief.Email}
			}
		}
	}
	if err := d.profiles.SetProfileArea(ctx, target.ID, areaID); err != nil {
		switch {
		case errors.Is(err, repository.ErrUniqueChief) && areaID != nil:
			return model.Profile{}, d.conflict(ctx, *areaID, target.ID)
		case errors.Is(err, repository.ErrConflict):
			return model.Profile{}, model.Invalid("area_id", "does not exist")
		}
		return model.Profile{}, notFoundOr(err, "profile", profileID)
	}
	d.log.Info("profile area changed",
		zap.String("actor_id", actor.ID),
		zap.String("profile_id", target.ID),
		zap.Stringp("area_id", areaID))
	target.AreaID = areaID
	target.AreaName = nil
	if areaID != nil {
		target.AreaName = &area.Name
	}
	return target, nil
}

// DeleteProfile removes a profile no visit references.  Nobody may delete
// themselves and a CHIEF may only delete advisors of their own area.
func (d *Directory) DeleteProfile(ctx context.Context, actor model.Actor, profileID string) error {
	if actor.ID == profileID {
		return model.ErrSelfDeletion
	}
	target, err := d.Profile(ctx, profileID)
	if err != nil {
		return err
	}
	if err := policy.CanDeleteProfile(actor, target); err != nil {
		return d.denied(actor, err)
	}
	refs, err := d.profiles.DeleteProfile(ctx, target.ID)
	if err != nil {
		return notFoundOr(err, "profile", profileID)
	}
	if refs > 0 {
		return &model.HasVisitsError{Count: refs}
	}
	d.log.Info("profile deleted", zap.String("actor_id", actor.ID), zap.String("profile_id", target.ID))
	return nil
}

// ListProfiles returns the profiles the actor administers, excluding the
// actor.  A CHIEF only sees their own area.
func (d *Directory) ListProfiles(ctx context.Context, actor model.Actor) ([]model.Profile, error) {
	return d.listScoped(ctx, actor, model.ProfileQuery{ExcludeID: actor.ID})
}

// ListAdvisors returns the advisors the actor may assign visits to.
func (d *Directory) ListAdvisors(ctx context.Context, actor model.Actor) ([]model.Profile, error) {
	return d.listScoped(ctx, actor, model.ProfileQuery{Role: model.RoleAdvisor})
}

func (d *Directory) listScoped(ctx context.Context, actor model.Actor, q model.ProfileQuery) ([]model.Profile, error) {
	if err := policy.CanListProfiles(actor); err != nil {
		return nil, d.denied(actor, err)
	}
	if actor.Role == model.RoleChief {
		if actor.AreaID == nil {
			return []model.Profile{}, nil
		}
		q.AreaID = *actor.AreaID
	}
	out, err := d.profiles.ListProfiles(ctx, q)
	if err != nil {
		return nil, storageErr(err)
	}
	return out, nil
}

// CreateArea adds a new area.
func (d *Directory) CreateArea(ctx context.Context, actor model.Actor, p policy.AreaPayload) (model.Area, error) {
	if err := policy.CanAdministerDirectory(actor); err != nil {
		return model.Area{}, d.denied(actor, err)
	}
	p, err := policy.ValidateArea(p)
	if err != nil {
		return model.Area{}, err
	}
	a := model.Area{ID: d.newID(), Name: p.Name, Description: p.Description, CreatedAt: d.clock.Now().UTC()}
	if err := d.areas.InsertArea(ctx, a); err != nil {
		return model.Area{}, storageErr(err)
	}
	d.log.Info("area created", zap.String("actor_id", actor.ID), zap.String("area_id", a.ID))
	return a, nil
}

// UpdateArea renames an area and replaces its description.
func (d *Directory) UpdateArea(ctx context.Context, actor model.Actor, id string, p policy.AreaPayload) (model.Area, error) {
	if err := policy.CanAdministerDirectory(actor); err != nil {
		return model.Area{}, d.denied(actor, err)
	}
	p, err := policy.ValidateArea(p)
	if err != nil {
		return model.Area{}, err
	}
	a, err := d.areas.GetArea(ctx, id)
	if err != nil {
		return model.Area{}, notFoundOr(err, "area", id)
	}
	a.Name = p.Name
	a.Description = p.Description
	if err := d.areas.SaveArea(ctx, a); err != nil {
		return model.Area{}, notFoundOr(err, "area", id)
	}
	return a, nil
}

// DeleteArea removes an area no profile belongs to.
func (d *Directory) DeleteArea(ctx context.Context, actor model.Actor, id string) error {
	if err := policy.CanAdministerDirectory(actor); err != nil {
		return d.denied(actor, err)
	}
	n, err := d.areas.DeleteArea(ctx, id)
	if err != nil {
		return notFoundOr(err, "area", id)
	}
	if n > 0 {
		return &model.HasDependentsError{Count: n}
	}
	d.log.Info("area deleted", zap.String("actor_id", actor.ID), zap.String("area_id", id))
	return nil
}

// ListAreas returns every area with its chief and advisor count.
func (d *Directory) ListAreas(ctx context.Context, actor model.Actor) ([]model.AreaSummary, error) {
	if err := policy.CanAdministerDirectory(actor); err != nil {
		return nil, d.denied(actor, err)
	}
	out, err := d.areas.ListAreaSummaries(ctx)
	if err != nil {
		return nil, storageErr(err)
	}
	return out, nil
}

// ListAreaUsers returns the profiles assigned to one area.
func (d *Directory) ListAreaUsers(ctx context.Context, actor model.Actor, areaID string) ([]model.Profile, error) {
	if err := policy.CanAdministerDirectory(actor); err != nil {
		return nil, d.denied(actor, err)
	}
	if _, err := d.areas.GetArea(ctx, areaID); err != nil {
		return nil, notFoundOr(err, "area", areaID)
	}
	out, err := d.profiles.ListProfiles(ctx, model.ProfileQuery{AreaID: areaID})
	if err != nil {
		return nil, storageErr(err)
	}
	return out, nil
}
