package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/adanyl0v/go-todo/internal/client"
	"github.com/adanyl0v/go-todo/internal/models"
	"github.com/adanyl0v/go-todo/internal/todosync"
)

var errTodoNotFound = errors.New("todo not found")

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	mutedStyle   = lipgloss.NewStyle().Faint(true)
)

// NewRegisterCommand creates the register command.
func NewRegisterCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "register",
		Short: "Create an account with --email and --password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Email == "" || opts.Password == "" {
				return errMissingCredentials
			}
			c, err := opts.newClient()
			if err != nil {
				return err
			}
			session := client.NewSession(c)
			err = session.SignUp(cmd.Context(), opts.Email, opts.Password)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("✔ registered "+session.Email()))
			return nil
		},
	}
}

// NewListCommand creates the list command.
func NewListCommand(opts *RootOptions) *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Print your todos, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := todosync.ParseFilter(filter)
			if err != nil {
				return err
			}
			return withController(cmd.Context(), opts, func(ctx context.Context, ctrl *todosync.Controller) error {
				if err := ctrl.SetFilter(ctx, mode); err != nil {
					return err
				}
				printView(cmd.OutOrStdout(), ctrl.Snapshot())
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&filter, "filter", "f", string(todosync.FilterAll), "all|active|completed")
	return cmd
}

// NewAddCommand creates the add command.
func NewAddCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add <text>...",
		Short: "Add a todo",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			return withController(cmd.Context(), opts, func(ctx context.Context, ctrl *todosync.Controller) error {
				if err := ctrl.Add(ctx, text); err != nil {
					return err
				}
				view := ctrl.Snapshot()
				if len(view.Todos) > 0 {
					printTodo(cmd.OutOrStdout(), view.Todos[0])
				}
				return nil
			})
		},
	}
}

// NewToggleCommand creates the toggle command.
func NewToggleCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <id>",
		Short: "Mark a todo done or not done",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return withController(cmd.Context(), opts, func(ctx context.Context, ctrl *todosync.Controller) error {
				if _, ok := findTodo(ctrl.Snapshot(), id); !ok {
					return fmt.Errorf("%w: %s", errTodoNotFound, id)
				}
				if err := ctrl.Toggle(ctx, id); err != nil {
					return err
				}
				if todo, ok := findTodo(ctrl.Snapshot(), id); ok {
					printTodo(cmd.OutOrStdout(), todo)
				}
				return nil
			})
		},
	}
}

// NewRemoveCommand creates the rm command.
func NewRemoveCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a todo",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return withController(cmd.Context(), opts, func(ctx context.Context, ctrl *todosync.Controller) error {
				if err := ctrl.Delete(ctx, id); err != nil {
					if client.IsStatus(err, http.StatusNotFound) {
						return fmt.Errorf("%w: %s", errTodoNotFound, id)
					}
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("✔ todo deleted"))
				return nil
			})
		},
	}
}

func findTodo(view todosync.View, id string) (models.Todo, bool) {
	for _, todo := range view.Todos {
		if todo.ID == id {
			return todo, true
		}
	}
	return models.Todo{}, false
}

func printTodo(w io.Writer, todo models.Todo) {
	box := "☐"
	if todo.Completed {
		box = successStyle.Render("☑")
	}
	fmt.Fprintf(w, "%s %s  %s\n", box, todo.Text, mutedStyle.Render(todo.ID))
}

func printView(w io.Writer, view todosync.View) {
	if len(view.Todos) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("no todos"))
	}
	for _, todo := range view.Todos {
		printTodo(w, todo)
	}
	fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("%d todos, %d completed", view.Total, view.Completed)))
}
