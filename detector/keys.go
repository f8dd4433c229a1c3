package detector

import "github.com/detlab/simcam/params"

// Parameter keys for the simulated detector.  The key space is fixed at
// configuration time; every key keeps its kind for the life of the camera.
const (
	// identity, string kind
	KeyManufacturer params.Key = iota
	KeyModel

	// acquisition control, integer kind
	KeyAcquire
	KeyStatus
	KeyFrameMode
	KeyNumFrames

	// timing and gains, float kind
	KeyAcquireTime
	KeyAcquirePeriod
	KeyGain
	KeyGainX
	KeyGainY

	// geometry, integer kind
	KeyBinX
	KeyBinY
	KeyMinX
	KeyMinY
	KeySizeX
	KeySizeY
	KeyMaxSizeX
	KeyMaxSizeY
	KeyDataType

	// readbacks, integer kind
	KeyImageSizeX
	KeyImageSizeY
	KeyImageSize
	KeyResetImage

	// snapshot persistence
	KeyFilePath
	KeyFileName
	KeyFileTemplate
	KeyFullFileName
	KeyFileNumber
	KeyFileFormat
	KeyAutoSave
	KeyAutoIncrement
	KeyWriteFile
	KeyReadFile
)

// FrameMode values
const (
	// FrameSingle produces one frame per start command
	FrameSingle = iota

	// FrameMultiple produces NumFrames frames per start command
	FrameMultiple

	// FrameContinuous produces frames until stopped
	FrameContinuous
)

// Status values
const (
	// StatusIdle means the acquisition task is waiting for a start
	StatusIdle = iota

	// StatusAcquiring means the task is producing frames
	StatusAcquiring
)

// paramDefs is the full key table with operator-console command strings.
// The strings are the input to Store.Find, which console shells use to
// resolve names to keys.
var paramDefs = []params.Def{
	{Key: KeyManufacturer, Kind: params.String, Name: "MANUFACTURER"},
	{Key: KeyModel, Kind: params.String, Name: "MODEL"},
	{Key: KeyAcquire, Kind: params.Integer, Name: "ACQUIRE"},
	{Key: KeyStatus, Kind: params.Integer, Name: "STATUS"},
	{Key: KeyFrameMode, Kind: params.Integer, Name: "FRAME_MODE"},
	{Key: KeyNumFrames, Kind: params.Integer, Name: "NFRAMES"},
	{Key: KeyAcquireTime, Kind: params.Float, Name: "ACQ_TIME"},
	{Key: KeyAcquirePeriod, Kind: params.Float, Name: "ACQ_PERIOD"},
	{Key: KeyGain, Kind: params.Float, Name: "GAIN"},
	{Key: KeyGainX, Kind: params.Float, Name: "SIM_GAINX"},
	{Key: KeyGainY, Kind: params.Float, Name: "SIM_GAINY"},
	{Key: KeyBinX, Kind: params.Integer, Name: "BIN_X"},
	{Key: KeyBinY, Kind: params.Integer, Name: "BIN_Y"},
	{Key: KeyMinX, Kind: params.Integer, Name: "MIN_X"},
	{Key: KeyMinY, Kind: params.Integer, Name: "MIN_Y"},
	{Key: KeySizeX, Kind: params.Integer, Name: "SIZE_X"},
	{Key: KeySizeY, Kind: params.Integer, Name: "SIZE_Y"},
	{Key: KeyMaxSizeX, Kind: params.Integer, Name: "MAX_SIZE_X"},
	{Key: KeyMaxSizeY, Kind: params.Integer, Name: "MAX_SIZE_Y"},
	{Key: KeyDataType, Kind: params.Integer, Name: "DATA_TYPE"},
	{Key: KeyImageSizeX, Kind: params.Integer, Name: "IMAGE_SIZE_X"},
	{Key: KeyImageSizeY, Kind: params.Integer, Name: "IMAGE_SIZE_Y"},
	{Key: KeyImageSize, Kind: params.Integer, Name: "IMAGE_SIZE"},
	{Key: KeyResetImage, Kind: params.Integer, Name: "RESET_IMAGE"},
	{Key: KeyFilePath, Kind: params.String, Name: "FILE_PATH"},
	{Key: KeyFileName, Kind: params.String, Name: "FILE_NAME"},
	{Key: KeyFileTemplate, Kind: params.String, Name: "FILE_TEMPLATE"},
	{Key: KeyFullFileName, Kind: params.String, Name: "FULL_FILE_NAME"},
	{Key: KeyFileNumber, Kind: params.Integer, Name: "FILE_NUMBER"},
	{Key: KeyFileFormat, Kind: params.Integer, Name: "FILE_FORMAT"},
	{Key: KeyAutoSave, Kind: params.Integer, Name: "AUTO_SAVE"},
	{Key: KeyAutoIncrement, Kind: params.Integer, Name: "AUTO_INCREMENT"},
	{Key: KeyWriteFile, Kind: params.Integer, Name: "WRITE_FILE"},
	{Key: KeyReadFile, Kind: params.Integer, Name: "READ_FILE"},
}
