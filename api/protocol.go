package api

const requestBodyMaxSize = 64 * 1024 // 64 KiB

type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type successResponse struct {
	Success bool `json:"success"`
}

type userPayload struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type userResponse struct {
	Message string      `json:"message,omitempty"`
	User    userPayload `json:"user"`
}
