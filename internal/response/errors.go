package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrTokenRequired    ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid     ErrCode = "TOKEN_INVALID"
	ErrTokenExpired     ErrCode = "TOKEN_EXPIRED"
	ErrDeviceIDRequired ErrCode = "DEVICE_ID_REQUIRED"
	ErrMonitorKey       ErrCode = "MONITOR_KEY_INVALID"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation         ErrCode = "VALIDATION_ERROR"
	ErrInvalidID          ErrCode = "INVALID_ID"
	ErrInvalidPayload     ErrCode = "INVALID_PAYLOAD"
	ErrSemesterRequired   ErrCode = "SEMESTER_REQUIRED"
	ErrSemesterMismatch   ErrCode = "SEMESTER_MISMATCH"
	ErrIdentifierRequired ErrCode = "NIS_REQUIRED"

	// ─── Eligibility ───────────────────────────────────────────────────
	ErrNotFound        ErrCode = "NOT_FOUND"
	ErrStudentNotFound ErrCode = "STUDENT_NOT_FOUND"
	ErrGradeMismatch   ErrCode = "GRADE_MISMATCH"
	ErrAlreadyTaken    ErrCode = "ALREADY_TAKEN"
	ErrNoQuestions     ErrCode = "NO_QUESTIONS"
	ErrExamClosed      ErrCode = "EXAM_CLOSED"
	ErrLoginPending    ErrCode = "LOGIN_NOT_PENDING"

	// ─── Session ───────────────────────────────────────────────────────
	ErrSessionInProgress ErrCode = "SESSION_IN_PROGRESS"
	ErrSessionExpired    ErrCode = "SESSION_EXPIRED"
	ErrNoSession         ErrCode = "NO_SESSION"
	ErrSessionNotActive  ErrCode = "SESSION_NOT_ACTIVE"
	ErrTimeUp            ErrCode = "TIME_UP"
	ErrPromptPending     ErrCode = "PROMPT_PENDING"
	ErrUnknownQuestion   ErrCode = "UNKNOWN_QUESTION"
	ErrInvalidOption     ErrCode = "INVALID_OPTION"
	ErrIndexOutOfRange   ErrCode = "INDEX_OUT_OF_RANGE"
	ErrNoViolation       ErrCode = "NO_PENDING_VIOLATION"
	ErrFinishNotReq      ErrCode = "FINISH_NOT_REQUESTED"
	ErrSubmitting        ErrCode = "SUBMISSION_IN_PROGRESS"
	ErrSubmitFailed      ErrCode = "SUBMIT_FAILED"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrStoreUnavailable ErrCode = "STORE_UNAVAILABLE"
	ErrInternal         ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrTokenRequired:
		return "Token sesi ujian diperlukan."
	case ErrTokenInvalid:
		return "Token sesi ujian tidak valid."
	case ErrTokenExpired:
		return "Token sesi ujian telah kedaluwarsa."
	case ErrDeviceIDRequired:
		return "Identitas perangkat diperlukan."
	case ErrMonitorKey:
		return "Kunci pengawas tidak valid."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validasi gagal. Silakan periksa masukan Anda."
	case ErrInvalidID:
		return "Format ID tidak valid."
	case ErrInvalidPayload:
		return "Payload permintaan tidak valid."
	case ErrSemesterRequired:
		return "Silakan pilih semester terlebih dahulu."
	case ErrSemesterMismatch:
		return "Semester tidak sesuai dengan ujian ini."
	case ErrIdentifierRequired:
		return "NIS wajib diisi."

	// ─── Eligibility ───────────────────────────────────────────────────
	case ErrNotFound:
		return "Ujian tidak ditemukan."
	case ErrStudentNotFound:
		return "NIS tidak terdaftar."
	case ErrGradeMismatch:
		return "Ujian ini bukan untuk tingkat kelas Anda."
	case ErrAlreadyTaken:
		return "Anda sudah mengerjakan ujian ini."
	case ErrNoQuestions:
		return "Ujian ini tidak memiliki pertanyaan."
	case ErrExamClosed:
		return "Batas waktu ujian ini telah lewat."
	case ErrLoginPending:
		return "Tidak ada login yang menunggu konfirmasi. Silakan login kembali."

	// ─── Session ───────────────────────────────────────────────────────
	case ErrSessionInProgress:
		return "Masih ada ujian yang sedang berlangsung di perangkat ini."
	case ErrSessionExpired:
		return "Waktu sesi ujian Anda telah habis."
	case ErrNoSession:
		return "Tidak ada sesi ujian yang sedang berlangsung."
	case ErrSessionNotActive:
		return "Sesi ujian tidak aktif."
	case ErrTimeUp:
		return "Waktu ujian telah habis."
	case ErrPromptPending:
		return "Silakan tanggapi pemberitahuan yang sedang tampil."
	case ErrUnknownQuestion:
		return "Soal tidak ditemukan."
	case ErrInvalidOption:
		return "Pilihan jawaban tidak valid."
	case ErrIndexOutOfRange:
		return "Nomor soal tidak valid."
	case ErrNoViolation:
		return "Tidak ada pelanggaran yang perlu dikonfirmasi."
	case ErrFinishNotReq:
		return "Selesaikan ujian terlebih dahulu."
	case ErrSubmitting:
		return "Jawaban sedang dikirim."
	case ErrSubmitFailed:
		return "Gagal mengirim jawaban. Jawaban Anda tetap tersimpan, silakan coba lagi."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Terlalu banyak permintaan. Silakan coba lagi nanti."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrStoreUnavailable:
		return "Server sedang tidak dapat dihubungi. Silakan coba lagi."
	case ErrInternal:
		return "Terjadi kesalahan server internal."
	default:
		return "Terjadi kesalahan yang tidak terduga."
	}
}
