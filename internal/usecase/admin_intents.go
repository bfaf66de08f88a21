package usecase

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/homelistingai/leadflow/internal/entity"
	"github.com/homelistingai/leadflow/internal/infra/metrics"
)

func (c *LifecycleController) AddUser(ctx context.Context, tenant string, in UserInput) (entity.User, error) {
	metrics.RecordIntent("add_user")
	if err := validateInput(in); err != nil {
		return entity.User{}, err
	}

	st, release := c.acquire(ctx, tenant)
	defer release()

	user := *entity.NewUser(in.Name, in.Email, in.Role, c.clock.Now())
	for _, existing := range st.users.Items() {
		if strings.EqualFold(existing.Email, user.Email) {
			return entity.User{}, &ValidationError{Field: "email", Message: "is already in use"}
		}
	}

	err := persist(ctx, c, st, tenant, entity.CollectionUsers, st.users,
		func(ctx context.Context) ([]json.RawMessage, error) {
			return c.remote.Put(ctx, tenant, entity.CollectionUsers.Resource(), user.ID, user)
		},
		func(items []entity.User) []entity.User {
			return st.users.Upsert(items, user)
		},
	)
	c.notify(tenant, st)
	if canonical, ok := st.users.Find(user.ID); ok {
		return canonical, err
	}
	return user, err
}

func (c *LifecycleController) RemoveUser(ctx context.Context, tenant, id string) error {
	metrics.RecordIntent("remove_user")
	st, release := c.acquire(ctx, tenant)
	defer release()

	if _, ok := st.users.Find(id); !ok {
		return nil
	}
	err := persist(ctx, c, st, tenant, entity.CollectionUsers, st.users,
		func(ctx context.Context) ([]json.RawMessage, error) {
			return c.remote.Delete(ctx, tenant, entity.CollectionUsers.Resource(), id)
		},
		func(items []entity.User) []entity.User {
			return st.users.Without(items, id)
		},
	)
	c.notify(tenant, st)
	return err
}

func (c *LifecycleController) ListUsers(ctx context.Context, tenant string) []entity.User {
	st, release := c.acquire(ctx, tenant)
	defer release()
	return st.users.Items()
}

func (c *LifecycleController) AddQRCode(ctx context.Context, tenant string, in QRCodeInput) (entity.QRCode, error) {
	metrics.RecordIntent("add_qr_code")
	if err := validateInput(in); err != nil {
		return entity.QRCode{}, err
	}

	st, release := c.acquire(ctx, tenant)
	defer release()

	code := *entity.NewQRCode(strings.TrimSpace(in.Name), strings.TrimSpace(in.DestinationURL), c.clock.Now())
	err := persist(ctx, c, st, tenant, entity.CollectionQRCodes, st.qrCodes,
		func(ctx context.Context) ([]json.RawMessage, error) {
			return c.remote.Put(ctx, tenant, entity.CollectionQRCodes.Resource(), code.ID, code)
		},
		func(items []entity.QRCode) []entity.QRCode {
			return st.qrCodes.Upsert(items, code)
		},
	)
	c.notify(tenant, st)
	if canonical, ok := st.qrCodes.Find(code.ID); ok {
		return canonical, err
	}
	return code, err
}

func (c *LifecycleController) DeleteQRCode(ctx context.Context, tenant, id string) error {
	metrics.RecordIntent("delete_qr_code")
	st, release := c.acquire(ctx, tenant)
	defer release()

	if _, ok := st.qrCodes.Find(id); !ok {
		return nil
	}
	err := persist(ctx, c, st, tenant, entity.CollectionQRCodes, st.qrCodes,
		func(ctx context.Context) ([]json.RawMessage, error) {
			return c.remote.Delete(ctx, tenant, entity.CollectionQRCodes.Resource(), id)
		},
		func(items []entity.QRCode) []entity.QRCode {
			return st.qrCodes.Without(items, id)
		},
	)
	c.notify(tenant, st)
	return err
}

func (c *LifecycleController) ListQRCodes(ctx context.Context, tenant string) []entity.QRCode {
	st, release := c.acquire(ctx, tenant)
	defer release()
	return st.qrCodes.Items()
}
