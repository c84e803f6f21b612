package authz

import (
	"github.com/fuego-digital/ProspectBoard/pkg/models"
)

type Action string

const (
	ActionManageUsers        Action = "manage_users"
	ActionChangeRoles        Action = "change_roles"
	ActionAcknowledgeMeeting Action = "acknowledge_meeting"
	ActionEditClient         Action = "edit_client"
	ActionDeleteClient       Action = "delete_client"
	ActionViewAllClients     Action = "view_all_clients"
)

type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(reason string) Decision {
	return Decision{Allowed: false, Reason: reason}
}

// Can is the single gate for every role checked action. Client scoped
// actions pass the target client, the rest pass nil.
func Can(user models.User, action Action, client *models.Client) Decision {
	switch action {
	case ActionManageUsers, ActionChangeRoles, ActionAcknowledgeMeeting, ActionViewAllClients:
		if user.Role == models.RoleAdmin {
			return allow()
		}
		return deny("requires admin role")
	case ActionEditClient, ActionDeleteClient:
		if user.Role == models.RoleAdmin {
			return allow()
		}
		if client != nil && client.UserID == user.ID {
			return allow()
		}
		return deny("client belongs to another prospector")
	default:
		return deny("unknown action")
	}
}
