package api

import (
	"context"
	"errors"

	"github.com/nextlinkuae/site-backend/services"
)

type keyType string

const adminSessionKey keyType = "adminSession"

// ctxWithAdminSession adds the verified admin session to the context
func ctxWithAdminSession(ctx context.Context, session services.AdminSession) context.Context {
	return context.WithValue(ctx, adminSessionKey, session)
}

// ctxGetAdminSession retrieves the admin session set by requireAdmin
func ctxGetAdminSession(ctx context.Context) (services.AdminSession, error) {
	if ctxValue := ctx.Value(adminSessionKey); ctxValue == nil {
		return services.AdminSession{}, errors.New("key not found in context")
	} else if session, ok := ctxValue.(services.AdminSession); !ok {
		return services.AdminSession{}, errors.New("value is not of type `services.AdminSession`")
	} else {
		return session, nil
	}
}
