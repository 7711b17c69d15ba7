package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/noah-isme/rtms-schedule-api/internal/models"
	"github.com/noah-isme/rtms-schedule-api/internal/repository"
	"github.com/noah-isme/rtms-schedule-api/internal/service"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage staff accounts",
	}

	var req service.CreateUserRequest
	var role string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a staff account",
		Example: `  rtmsctl user create --email admin@clinic.example --name "Clinic Admin" --role ADMIN --password ...`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, db, err := openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			req.Role = models.UserRole(strings.ToUpper(role))
			svc := service.NewAuthService(repository.NewUserRepository(db), nil, nil, service.AuthConfig{
				AccessTokenSecret: cfg.JWT.Secret,
				AccessTokenExpiry: cfg.JWT.Expiration,
			})
			user, err := svc.CreateUser(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s user %s (%s)\n", user.Role, user.Email, user.ID)
			return nil
		},
	}
	create.Flags().StringVar(&req.Email, "email", "", "login email")
	create.Flags().StringVar(&req.FullName, "name", "", "display name")
	create.Flags().StringVar(&req.Password, "password", "", "initial password, at least 8 characters")
	create.Flags().StringVar(&role, "role", string(models.RoleNurse), "ADMIN, DOCTOR or NURSE")
	_ = create.MarkFlagRequired("email")
	_ = create.MarkFlagRequired("name")
	_ = create.MarkFlagRequired("password")
	cmd.AddCommand(create)
	return cmd
}
