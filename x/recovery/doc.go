/*
Package recovery implements owner key account recovery. A designated
recovery partner files a short lived recovery request naming the new
owner authority; the account holder then proves recent ownership against
the owner authority history and both authorities together replace the
compromised owner key. Changing the recovery partner itself takes effect
only after a long delay, so a stolen active key cannot redirect the
safety net.
*/
package recovery
