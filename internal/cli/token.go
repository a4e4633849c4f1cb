package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ahmed-sakil/asian-school/internal/model"
	"github.com/ahmed-sakil/asian-school/pkg/jwt"
	"github.com/ahmed-sakil/asian-school/pkg/redis"
)

// NewTokenCommand 开发与运维用的 Token 工具
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue or revoke bearer tokens",
	}
	cmd.AddCommand(newTokenIssueCommand(rootOpts))
	cmd.AddCommand(newTokenRevokeCommand(rootOpts))
	return cmd
}

func newTokenIssueCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		userID   string
		role     string
		schoolID string
		ttl      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Print a signed access token for a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !validRole(role) {
				return fmt.Errorf("角色无效 %q: 仅支持 %s | %s | %s", role, model.RoleAdmin, model.RoleTeacher, model.RoleStudent)
			}

			e, err := loadEnv(rootOpts)
			if err != nil {
				return err
			}
			defer e.logger.Sync()

			mgr := jwt.NewManager(&e.cfg.Auth)
			if ttl <= 0 {
				ttl = e.cfg.Auth.AccessTokenTTL
			}
			token, err := mgr.GenerateAccessTokenWithTTL(userID, role, schoolID, ttl)
			if err != nil {
				return fmt.Errorf("签发 Token 失败: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user ID (uuid)")
	cmd.Flags().StringVar(&role, "role", model.RoleAdmin, "ADMIN | TEACHER | STUDENT")
	cmd.Flags().StringVar(&schoolID, "school-id", "", "school ID carried in the token")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default auth.access_token_ttl)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newTokenRevokeCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		token string
		jti   string
		ttl   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "revoke",
		Short: "Blacklist a token by value or by jti",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(rootOpts)
			if err != nil {
				return err
			}
			defer e.logger.Sync()

			if token != "" {
				claims, err := jwt.NewManager(&e.cfg.Auth).ParseToken(token)
				if err != nil {
					return fmt.Errorf("解析 Token 失败: %w", err)
				}
				jti, ttl = claims.ID, claims.RemainingTTL()
			}
			if jti == "" {
				return errors.New("需要 --token 或 --jti")
			}
			if ttl <= 0 {
				ttl = e.cfg.Auth.AccessTokenTTL
			}

			rdb, err := redis.NewClient(&e.cfg.Redis, e.logger)
			if err != nil {
				return err
			}
			defer rdb.Close()

			if err := rdb.BlacklistToken(cmd.Context(), jti, ttl); err != nil {
				return fmt.Errorf("写入黑名单失败: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "revoked %s for %s\n", jti, ttl.Round(time.Second))
			return nil
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "token to revoke")
	cmd.Flags().StringVar(&jti, "jti", "", "token ID to revoke")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "blacklist lifetime when revoking by jti")
	return cmd
}

func validRole(role string) bool {
	switch role {
	case model.RoleAdmin, model.RoleTeacher, model.RoleStudent:
		return true
	}
	return false
}
