// Package session holds the scan state machine and the UI surface it drives.
//
// One Session exists per scanner. A button press moves it through
//
//	Idle -> Capturing -> Processing -> Completed | Failed -> Idle
//
// Processing ignores presses; it ends only through Complete or Fail, after
// which the next press returns to Idle. A press in Idle before the camera is
// ready leaves the session Idle and returns ErrPermissionDenied.
package session
