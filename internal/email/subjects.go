package email

const (
	subjectLeadReceived     = "Nuevo lead recibido"
	subjectLeadAssigned     = "Se le ha asignado un nuevo lead"
	subjectLeadEscalatedFmt = "Lead fuera de SLA (nivel %d)"
)
