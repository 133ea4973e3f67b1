// internal/common/constants/status.go
package constants

// Control Message Type 제어 메시지 타입 상수
const (
	MessageTypeGeneral   = "general"
	MessageTypeError     = "error"
	MessageTypeLocation  = "location"
	MessageTypeImageRec  = "imageRec"
	MessageTypeMode      = "mode"
	MessageTypeStatus    = "status"
	MessageTypeObstacles = "obstacles"
	MessageTypeAction    = "action"
)

// Run Status 실행 상태 상수
const (
	StatusRunning  = "running"
	StatusFinished = "finished"
)

// Mode 모드 상수
const (
	ModePath = "path"
)

// Action 액션 상수
const (
	ActionStart = "start"
)

// Motor Wire 모터 컨트롤러 와이어 리터럴
const (
	ResetCommand  = "RS00"
	AckPrefix     = "ACK"
	FinishCode    = "FIN"
	CapturePrefix = "CAP"
)

// Vision 비전 응답 센티널
const (
	NotRecognized = "NA"
)

// Control Messages 제어 링크로 보내는 고정 문구
const (
	MsgConnected          = "You are connected to the RPi!"
	MsgReady              = "Ready to run!"
	MsgReconnected        = "Link successfully reconnected!"
	MsgStarting           = "Starting robot on path!"
	MsgAlreadyRunning     = "Robot is already running"
	MsgFinished           = "Commands queue finished."
	MsgRequestingPlan     = "Requesting path and commands from algo server..."
	MsgPlanReceived       = "Commands and path received Algo API. Robot is ready to move."
	MsgPlanFailed         = "Something went wrong when requesting path and commands from Algo API."
	MsgAPIDown            = "API is down, start command aborted."
	MsgEmptyQueue         = "Command queue is empty, did you set obstacles?"
	MsgStitchFailed       = "Something went wrong when requesting stitch from the API."
	MsgStitched           = "Images stitched!"
	MsgCaptureFailed      = "Image capture failed for obstacle id: %d"
	MsgCapturing          = "Capturing image for obstacle id: %d"
	MsgMotorSendFailed    = "Failed to send command to motor controller, run aborted."
	MsgProtocolViolation  = "Invalid message received, run aborted."
	MsgUnknownMotorAction = "Unknown command from planner, run aborted."
)
