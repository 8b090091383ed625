package models

// Multipart field names accepted by the webhook.
const (
	FieldStatus     = "status"
	FieldIDGen      = "id_gen"
	FieldTimeGen    = "time_gen"
	FieldImgMessage = "img_message"
	FieldResImage   = "res_image"
)

// StatusOK is the only status value that leads to a save.
const StatusOK = "200"

// MessageNotAFile is recorded when a successful status arrives without an image.
const MessageNotAFile = "resImage is not a file"

// Submission holds the parts of one webhook request.
type Submission struct {
	Status     string
	IDGen      string
	TimeGen    string
	ImgMessage string
	ResImage   []byte
	HasImage   bool
}
